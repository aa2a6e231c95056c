package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// MemoryIndex is a lexical index over pre-chunked documents held in process memory.
// Score is the number of query-term occurrences in the chunk.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
}

var _ Index = (*MemoryIndex)(nil)

func NewMemoryIndex(docs ...Document) *MemoryIndex {
	idx := &MemoryIndex{}
	idx.Add(docs...)
	return idx
}

// LoadMemoryIndex reads a JSON array of {id, content, metadata} chunks.
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index seed %s: %w", path, err)
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode index seed %s: %w", path, err)
	}
	return NewMemoryIndex(docs...), nil
}

func (m *MemoryIndex) Add(docs ...Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("chunk-%d", len(m.docs)+1)
		}
		m.docs = append(m.docs, d)
	}
}

// Documents returns a copy of the indexed chunks.
func (m *MemoryIndex) Documents() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, len(m.docs))
	copy(out, m.docs)
	return out
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Search(ctx context.Context, query string, filters Filters, k int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := searchTerms(query)
	if len(terms) == 0 || k <= 0 {
		return []Document{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []Document
	for _, d := range m.docs {
		if !filters.Matches(d.Metadata) {
			continue
		}
		score := 0
		content := strings.ToLower(d.Content)
		for _, t := range terms {
			score += strings.Count(content, t)
		}
		if score == 0 {
			continue
		}
		hit := d
		hit.Score = float64(score)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []Document{}
	}
	return hits, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {},
	"and": {}, "or": {}, "is": {}, "was": {}, "were": {}, "are": {}, "what": {},
	"how": {}, "much": {}, "many": {}, "me": {}, "tell": {}, "about": {}, "did": {},
	"do": {}, "does": {}, "s": {}, "it": {}, "its": {}, "their": {}, "by": {}, "with": {},
}

func searchTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(words))
	var terms []string
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}
