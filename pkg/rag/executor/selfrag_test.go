package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm/mock"
	"finagent-be/pkg/rag/grader"
	"finagent-be/pkg/rag/quality"
	"finagent-be/pkg/rag/response"
	"finagent-be/pkg/rag/rewriter"
	"finagent-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type retrieverFunc func(ctx context.Context, query string, k int) (string, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string, k int) (string, error) {
	return f(ctx, query, k)
}

type graderFunc func(ctx context.Context, query, retrieved string) grader.Verdict

func (f graderFunc) Grade(ctx context.Context, query, retrieved string) grader.Verdict {
	return f(ctx, query, retrieved)
}

type rewriterFunc func(ctx context.Context, query string, tried []string) []string

func (f rewriterFunc) Rewrite(ctx context.Context, query string, tried []string) []string {
	return f(ctx, query, tried)
}

type generatorFunc func(ctx context.Context, query, docs string) response.Answer

func (f generatorFunc) Generate(ctx context.Context, query, docs string) response.Answer {
	return f(ctx, query, docs)
}

const amazonDocs = "--- Document 1 ---\ncompany_name: AMZN\nfiscal_quarter: Q4\nfiscal_year: 2023\npage: 3\n\nNet sales increased 14% to $170.0 billion in the fourth quarter."

const amazonAnswer = "## Amazon Q4 2023\n\nAmazon reported **$170.0 billion** in net sales for Q4 2023 [1].\n\n**References:**\n1. Company: AMZN, Year: 2023, Quarter: Q4, Page: 3"

func newRealLoop(provider *mock.Provider, r Retriever) *SelfRAG {
	log := logger.NewNopLogger()
	return NewSelfRAG(
		r,
		grader.New(provider, log),
		rewriter.New(provider, log),
		response.NewGenerator(provider, log, ""),
		log,
		nil,
		DefaultConfig(),
	)
}

func TestSelfRAG_Greeting(t *testing.T) {
	provider := mock.New()
	var calls atomic.Int32
	loop := newRealLoop(provider, retrieverFunc(func(context.Context, string, int) (string, error) {
		calls.Add(1)
		return amazonDocs, nil
	}))

	res, err := loop.Run(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, []Node{NodeRetrieve, NodeRouteAfterRetrieve, NodeGenerate, NodeEnd}, res.Trace)
	assert.Equal(t, "Hello! 👋 I'm your AI assistant. How can I help you today?", res.Answer)
	assert.True(t, res.Quick)
	assert.True(t, res.Context.IsSkipped())
	assert.Equal(t, quality.ReasonSkipped, res.StopReason)
	assert.Zero(t, calls.Load())
	assert.Zero(t, provider.Calls())
}

func TestSelfRAG_RelevantDocuments(t *testing.T) {
	provider := mock.New(
		mock.SystemContains("grader assessing relevance", `{"binary_score":"yes"}`),
		mock.SystemContains("financial document analyst", amazonAnswer),
	)
	var seen []string
	var mu sync.Mutex
	loop := newRealLoop(provider, retrieverFunc(func(_ context.Context, q string, k int) (string, error) {
		mu.Lock()
		seen = append(seen, q)
		mu.Unlock()
		assert.Equal(t, 3, k)
		return amazonDocs, nil
	}))

	query := "What was Amazon's revenue in Q4 2023?"
	res, err := loop.Run(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, []Node{NodeRetrieve, NodeRouteAfterRetrieve, NodeGradeDocuments, NodeGenerate, NodeEnd}, res.Trace)
	assert.Equal(t, 1, res.RetrieveVisits)
	assert.Equal(t, []string{query}, seen)
	assert.Contains(t, res.Answer, "**References:**")
	assert.True(t, res.Context.HasText())
	assert.Contains(t, res.Context.Text(), "## Query 1: "+query+"\n\n### Retrieved Documents:\n")
	assert.Equal(t, quality.ReasonAccepted, res.StopReason)
	assert.Zero(t, res.TransformCount)
}

func TestSelfRAG_EmptyRetrievalGivesUp(t *testing.T) {
	rewrites := 0
	provider := mock.New(
		mock.SystemContainsFunc("query re-writer", func(mock.Request) (string, error) {
			rewrites++
			return fmt.Sprintf(`{"queries":["Amazon revenue 202%d","Apple revenue 202%d"]}`, rewrites, rewrites), nil
		}),
		mock.SystemContains("friendly and helpful", "I couldn't find any matching documents about revenue. Try naming a company and a year."),
	)
	var calls atomic.Int32
	loop := newRealLoop(provider, retrieverFunc(func(context.Context, string, int) (string, error) {
		calls.Add(1)
		return "", nil
	}))

	res, err := loop.Run(context.Background(), "tell me about revenue")
	require.NoError(t, err)

	assert.Equal(t, 3, res.RetrieveVisits)
	assert.Equal(t, 2, res.TransformCount)
	assert.Equal(t, []Node{
		NodeRetrieve, NodeRouteAfterRetrieve, NodeTransformQuery,
		NodeRetrieve, NodeRouteAfterRetrieve, NodeTransformQuery,
		NodeRetrieve, NodeRouteAfterRetrieve, NodeGenerate, NodeEnd,
	}, res.Trace)
	assert.Equal(t, []string{"Amazon revenue 2021", "Apple revenue 2021", "Amazon revenue 2022", "Apple revenue 2022"}, res.RewrittenQueries)
	// 1 original query, then 2 rewritten, then 4 rewritten
	assert.EqualValues(t, 7, calls.Load())
	assert.Contains(t, res.Answer, "couldn't find")
	assert.True(t, res.Context.IsEmpty())
	assert.Equal(t, quality.ReasonNothingAfterRetry, res.StopReason)
	assert.Zero(t, provider.CallsWhereSystemContains("grader assessing"))
}

func TestSelfRAG_IrrelevantDocumentsAreRewritten(t *testing.T) {
	grades := 0
	loop := NewSelfRAG(
		retrieverFunc(func(context.Context, string, int) (string, error) { return amazonDocs, nil }),
		graderFunc(func(context.Context, string, string) grader.Verdict {
			grades++
			if grades == 1 {
				return grader.NotRelevant
			}
			return grader.Relevant
		}),
		rewriterFunc(func(context.Context, string, []string) []string { return []string{"Amazon net sales Q4 2023"} }),
		generatorFunc(func(_ context.Context, _ string, docs string) response.Answer {
			require.NotEmpty(t, docs)
			return response.Answer{Text: amazonAnswer}
		}),
		logger.NewNopLogger(), nil, DefaultConfig(),
	)

	res, err := loop.Run(context.Background(), "What was Amazon's revenue in Q4 2023?")
	require.NoError(t, err)

	assert.Equal(t, 2, res.RetrieveVisits)
	assert.Equal(t, 1, res.TransformCount)
	assert.Equal(t, []string{"Amazon net sales Q4 2023"}, res.RewrittenQueries)
	assert.Contains(t, res.Context.Text(), "## Query 1: Amazon net sales Q4 2023")
}

func TestSelfRAG_ShortApologyRetries(t *testing.T) {
	answers := []string{"Sorry, no data.", amazonAnswer}
	n := 0
	loop := NewSelfRAG(
		retrieverFunc(func(context.Context, string, int) (string, error) { return amazonDocs, nil }),
		graderFunc(func(context.Context, string, string) grader.Verdict { return grader.Relevant }),
		rewriterFunc(func(context.Context, string, []string) []string { return []string{"Amazon Q4 2023 net sales"} }),
		generatorFunc(func(context.Context, string, string) response.Answer {
			a := answers[n]
			n++
			return response.Answer{Text: a}
		}),
		logger.NewNopLogger(), nil, DefaultConfig(),
	)

	res, err := loop.Run(context.Background(), "What was Amazon's revenue in Q4 2023?")
	require.NoError(t, err)

	assert.Equal(t, amazonAnswer, res.Answer)
	assert.Equal(t, 1, res.TransformCount)
	assert.Len(t, res.State.Messages, 3)
}

func TestSelfRAG_RetrieverErrorsCountAsEmpty(t *testing.T) {
	loop := NewSelfRAG(
		retrieverFunc(func(_ context.Context, q string, _ int) (string, error) {
			if strings.Contains(q, "broken") {
				return "", errors.New("index unavailable")
			}
			return amazonDocs, nil
		}),
		graderFunc(func(context.Context, string, string) grader.Verdict { return grader.Relevant }),
		rewriterFunc(func(context.Context, string, []string) []string { return []string{"broken query", "Amazon revenue 2023"} }),
		generatorFunc(func(context.Context, string, string) response.Answer { return response.Answer{Text: amazonAnswer} }),
		logger.NewNopLogger(), nil, DefaultConfig(),
	)

	st := state.New("What was Amazon's revenue in 2023?", 3, time.Now())
	st.RewrittenQueries = []string{"broken query", "Amazon revenue 2023"}
	var calls atomic.Int64
	loop.retrieve(context.Background(), st, &calls)

	assert.EqualValues(t, 2, calls.Load())
	assert.True(t, st.Context.HasText())
	assert.NotContains(t, st.Context.Text(), "broken query")
	assert.Contains(t, st.Context.Text(), "## Query 2: Amazon revenue 2023")
}

func TestSelfRAG_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewSelfRAG(
		retrieverFunc(func(context.Context, string, int) (string, error) {
			cancel()
			return "", nil
		}),
		graderFunc(func(context.Context, string, string) grader.Verdict { return grader.NotRelevant }),
		rewriterFunc(func(context.Context, string, []string) []string { return nil }),
		generatorFunc(func(context.Context, string, string) response.Answer { return response.Answer{Text: "unused"} }),
		logger.NewNopLogger(), nil, DefaultConfig(),
	)

	res, err := loop.Run(ctx, "What was Amazon's revenue in 2023?")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, []Node{NodeRetrieve}, res.Trace)
	assert.Empty(t, res.Answer)
}

func TestSelfRAG_DeadlineDuringGenerate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	loop := NewSelfRAG(
		retrieverFunc(func(context.Context, string, int) (string, error) { return "", nil }),
		graderFunc(func(context.Context, string, string) grader.Verdict { return grader.NotRelevant }),
		rewriterFunc(func(context.Context, string, []string) []string { return nil }),
		generatorFunc(func(ctx context.Context, _, _ string) response.Answer {
			<-ctx.Done()
			return response.Answer{Text: response.DegradedAnswer, Err: ctx.Err()}
		}),
		logger.NewNopLogger(), nil, DefaultConfig(),
	)

	res, err := loop.Run(ctx, "write me a short poem about markets")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.Equal(t, response.DegradedAnswer, res.Answer)
	assert.True(t, res.Degraded)
}

func TestSelfRAG_RetrieveVisitsBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxTransforms := rapid.IntRange(1, 5).Draw(t, "max_transforms")
		giveUp := rapid.IntRange(1, 5).Draw(t, "give_up")
		finds := rapid.SliceOfN(rapid.Bool(), 64, 64).Draw(t, "finds")
		verdicts := rapid.SliceOfN(rapid.Bool(), 64, 64).Draw(t, "verdicts")
		apologies := rapid.SliceOfN(rapid.Bool(), 64, 64).Draw(t, "apologies")

		var mu sync.Mutex
		var retrieveN, gradeN, genN, rewriteN int

		loop := NewSelfRAG(
			retrieverFunc(func(context.Context, string, int) (string, error) {
				mu.Lock()
				defer mu.Unlock()
				found := finds[retrieveN%len(finds)]
				retrieveN++
				if found {
					return amazonDocs, nil
				}
				return "", nil
			}),
			graderFunc(func(context.Context, string, string) grader.Verdict {
				v := verdicts[gradeN%len(verdicts)]
				gradeN++
				if v {
					return grader.Relevant
				}
				return grader.NotRelevant
			}),
			rewriterFunc(func(context.Context, string, []string) []string {
				rewriteN++
				return []string{fmt.Sprintf("fresh query %d", rewriteN)}
			}),
			generatorFunc(func(context.Context, string, string) response.Answer {
				a := apologies[genN%len(apologies)]
				genN++
				if a {
					return response.Answer{Text: "Sorry."}
				}
				return response.Answer{Text: amazonAnswer}
			}),
			logger.NewNopLogger(), nil,
			Config{MaxTransforms: maxTransforms, RetrieveGiveUp: giveUp, TopK: 3},
		)

		res, err := loop.Run(context.Background(), "What was Amazon's revenue in Q4 2023?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.RetrieveVisits > maxTransforms+1 {
			t.Fatalf("retrieve visited %d times with max_transforms %d", res.RetrieveVisits, maxTransforms)
		}
		if res.TransformCount > maxTransforms {
			t.Fatalf("transform_count %d exceeds %d", res.TransformCount, maxTransforms)
		}
		if res.Trace[len(res.Trace)-1] != NodeEnd {
			t.Fatalf("trace does not end: %v", res.Trace)
		}
	})
}
