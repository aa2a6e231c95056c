package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"finagent-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<div class="results">
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fmarkets%2Fnvidia&amp;rut=abc">Nvidia <b>shares</b> rise</a>
    </h2>
    <a class="result__snippet" href="#">Nvidia stock climbed 4% on Tuesday after   earnings.</a>
  </div>
  <div class="result results_links web-result">
    <h2 class="result__title"><a class="result__a" href="https://example.com/fed">Fed holds rates</a></h2>
    <div class="result__snippet">The Federal Reserve kept rates unchanged.</div>
  </div>
  <div class="result result--ad"><span>sponsored block without a link</span></div>
</div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "nvidia stock", r.PostForm.Get("q"))
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	results, err := NewDuckDuckGo(srv.URL).Search(context.Background(), "nvidia stock", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, Result{
		Title: "Nvidia shares rise",
		Body:  "Nvidia stock climbed 4% on Tuesday after earnings.",
		URL:   "https://www.reuters.com/markets/nvidia",
	}, results[0])
	assert.Equal(t, "https://example.com/fed", results[1].URL)

	results, err = NewDuckDuckGo(srv.URL).Search(context.Background(), "nvidia stock", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDuckDuckGo_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(srv.URL).Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "429")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "No results found for 'x'", Format("x", nil))

	got := Format("fed", []Result{{Title: "Fed holds rates", URL: "https://example.com/fed"}})
	assert.Equal(t, "Search results for search query: 'fed'\n\n1. **Fed holds rates**\n   No description available\n   https://example.com/fed", got)
}

type countingSearcher struct {
	calls atomic.Int32
}

func (c *countingSearcher) Search(context.Context, string, int) ([]Result, error) {
	c.calls.Add(1)
	return []Result{{Title: "t", Body: "b", URL: "https://example.com"}}, nil
}

func TestCachedSearcher_Local(t *testing.T) {
	inner := &countingSearcher{}
	c := NewCachedSearcher(inner, nil, time.Minute, logger.NewNopLogger(), nil)

	for i := 0; i < 3; i++ {
		res, err := c.Search(context.Background(), "Fed Rates", 5)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	}
	_, err := c.Search(context.Background(), "  fed rates ", 5)
	require.NoError(t, err)

	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestCachedSearcher_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	inner := &countingSearcher{}
	first := NewCachedSearcher(inner, rdb, time.Minute, logger.NewNopLogger(), nil)
	_, err = first.Search(context.Background(), "fed rates", 5)
	require.NoError(t, err)

	key := cacheKey("fed rates", 5)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// a second instance has an empty local cache but shares redis
	second := NewCachedSearcher(inner, rdb, time.Minute, logger.NewNopLogger(), nil)
	res, err := second.Search(context.Background(), "fed rates", 5)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", res[0].URL)
	assert.EqualValues(t, 1, inner.calls.Load())
}
