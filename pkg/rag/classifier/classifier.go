// Package classifier decides whether a query needs document retrieval.
//
// ShouldRetrieveDocuments is the only definition of that decision. The retrieve
// node, post-retrieve routing, grading, the quality check and the quick-response
// guard all call it.
package classifier

import (
	"strings"
	"unicode"
)

var simplePhrases = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "hi there": {}, "hello there": {},
	"how are you": {}, "how are you doing": {}, "what's up": {}, "whats up": {},
	"good morning": {}, "good afternoon": {}, "good evening": {},
	"thanks": {}, "thank you": {}, "bye": {}, "goodbye": {},
	"who are you": {}, "what can you do": {}, "help": {},
	"who created you": {}, "what is your name": {},
	"ok": {}, "okay": {}, "yes": {}, "no": {}, "maybe": {},
}

var vagueDocPhrases = []string{
	"tell me something in your document",
	"what's in your document",
	"show me your document",
	"document content",
	"what documents do you have",
	"your documents",
}

var vagueWords = []string{"document", "something", "anything", "tell", "show", "what"}

var domainKeywords = [][]string{
	// financial
	{"revenue"}, {"profit"}, {"earnings"}, {"financial"}, {"sec"}, {"filing"},
	{"quarter"}, {"annual"}, {"report"}, {"balance"}, {"cash", "flow"},
	{"income"}, {"statement"}, {"ebitda"}, {"margin"}, {"growth"},
	// database
	{"employee"}, {"salary"}, {"department"}, {"database"}, {"query"},
	{"table"}, {"select"}, {"hr"}, {"human", "resources"}, {"sql"},
}

var questionPrefixes = []string{"what is", "how much", "how many", "what are"}

var quantityNouns = []string{"revenue", "profit", "salary", "employees", "cost", "price"}

// Normalize lowercases, trims and drops trailing punctuation so "Hi!" and "hi" compare equal.
func Normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.TrimRightFunc(q, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\''
	})
}

// Tokens splits lowercased text into alphanumeric words. "Amazon's" yields "amazon", "s".
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// IsSimplePhrase reports an exact greeting/courtesy match.
func IsSimplePhrase(query string) bool {
	_, ok := simplePhrases[Normalize(query)]
	return ok
}

// ShouldRetrieveDocuments is pure and deterministic. Unknown queries default to false.
func ShouldRetrieveDocuments(query string) bool {
	q := Normalize(query)

	if _, ok := simplePhrases[q]; ok {
		return false
	}

	for _, phrase := range vagueDocPhrases {
		if strings.Contains(q, phrase) {
			return false
		}
	}

	tokens := Tokens(q)
	if len(strings.Fields(q)) <= 3 && containsAnyToken(tokens, vagueWords) {
		return false
	}

	for _, kw := range domainKeywords {
		if containsSequence(tokens, kw) {
			return true
		}
	}

	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(q, prefix) && containsAnyToken(tokens, quantityNouns) {
			return true
		}
	}

	return false
}

// ContainsWord reports whether any of words occurs as a whole token in text.
func ContainsWord(text string, words []string) bool {
	return containsAnyToken(Tokens(text), words)
}

func containsAnyToken(tokens []string, words []string) bool {
	for _, w := range words {
		if containsSequence(tokens, []string{w}) {
			return true
		}
	}
	return false
}

// containsSequence matches kw as contiguous tokens. The last word also matches its plural.
func containsSequence(tokens []string, kw []string) bool {
	if len(kw) == 0 || len(tokens) < len(kw) {
		return false
	}
	for i := 0; i+len(kw) <= len(tokens); i++ {
		matched := true
		for j, w := range kw {
			t := tokens[i+j]
			if j == len(kw)-1 {
				if !wordMatches(t, w) {
					matched = false
					break
				}
			} else if t != w {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func wordMatches(token, word string) bool {
	return token == word || token == word+"s" || token == word+"es"
}
