package retriever

import (
	"context"
	"sort"
	"strings"

	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/classifier"
	"finagent-be/pkg/rag/index"
	"finagent-be/pkg/rag/prompt"
)

const rankingKeywordCount = 5

var keywordStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {},
	"and": {}, "or": {}, "is": {}, "was": {}, "were": {}, "are": {}, "what": {},
	"how": {}, "much": {}, "many": {}, "me": {}, "tell": {}, "about": {}, "did": {},
	"do": {}, "does": {}, "s": {}, "their": {}, "its": {}, "show": {}, "give": {},
}

// RankingKeywords asks the model for exactly five keywords. On any failure or short
// answer it pads with non-stopword query terms.
func (r *Retriever) RankingKeywords(ctx context.Context, query string) []string {
	var out llm.RankingKeywords
	err := llm.CompleteStructured(ctx, r.llm, llm.RankingKeywordsSchema, prompt.RankingKeywordsSystem, query, &out)
	if err != nil {
		r.logger.Warn("RETRIEVER", "Ranking keyword generation failed, using query terms", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return completeKeywords(out.Keywords, query)
}

func completeKeywords(fromModel []string, query string) []string {
	seen := make(map[string]struct{}, rankingKeywordCount)
	keywords := make([]string, 0, rankingKeywordCount)
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || len(keywords) >= rankingKeywordCount {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}

	for _, k := range fromModel {
		add(k)
	}
	for _, tok := range classifier.Tokens(query) {
		if _, stop := keywordStopwords[tok]; stop {
			continue
		}
		add(tok)
	}
	return keywords
}

// RankByKeywords orders docs by keyword occurrences in content, keeping the index order
// for ties, and truncates to k.
func RankByKeywords(docs []index.Document, keywords []string, k int) []index.Document {
	type scored struct {
		doc   index.Document
		score int
	}

	ranked := make([]scored, len(docs))
	for i, d := range docs {
		content := strings.ToLower(d.Content)
		score := 0
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			score += strings.Count(content, strings.ToLower(kw))
		}
		ranked[i] = scored{doc: d, score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]index.Document, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.doc)
	}
	return out
}
