package response

import (
	"finagent-be/pkg/rag/classifier"
)

type quickResponse struct {
	phrase []string
	text   string
}

// Longer phrases first so "thank you" wins over "thanks" style overlaps.
var quickResponses = []quickResponse{
	{[]string{"what", "can", "you", "do"}, "I can help you with:\n\n• **Financial Analysis**: SEC filings, revenue reports, earnings data\n• **SQL Queries**: Employee database, salary information, HR data\n• **Web Search**: Latest news, current information, trends\n\nJust ask me anything!"},
	{[]string{"who", "are", "you"}, "I'm an AI assistant specializing in financial analysis, SQL database queries, and web searches. I can help you find and analyze information from various sources."},
	{[]string{"how", "are", "you"}, "I'm doing great, thanks for asking! Ready to help you with any questions you might have."},
	{[]string{"thank", "you"}, "You're welcome! 😊 Let me know if you need anything else."},
	{[]string{"goodbye"}, "See you later! 😊 Take care!"},
	{[]string{"hello"}, "Hi there! 😊 I'm ready to assist you with financial analysis, database queries, or web searches. What would you like to know?"},
	{[]string{"thanks"}, "No problem! Happy to help. 👍"},
	{[]string{"hey"}, "Hey! 👋 What can I do for you today?"},
	{[]string{"bye"}, "Goodbye! 👋 Have a great day!"},
	{[]string{"hi"}, "Hello! 👋 I'm your AI assistant. How can I help you today?"},
}

// QuickResponse returns canned text for greeting and courtesy queries.
// An exact phrase always matches. A phrase inside a longer query matches only as whole
// words and only when the query does not need document retrieval.
func QuickResponse(query string) (string, bool) {
	tokens := classifier.Tokens(classifier.Normalize(query))
	if len(tokens) == 0 {
		return "", false
	}

	for _, qr := range quickResponses {
		if equalTokens(tokens, qr.phrase) {
			return qr.text, true
		}
	}

	if classifier.ShouldRetrieveDocuments(query) {
		return "", false
	}

	for _, qr := range quickResponses {
		if containsPhrase(tokens, qr.phrase) {
			return qr.text, true
		}
	}
	return "", false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsPhrase(tokens, phrase []string) bool {
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		if equalTokens(tokens[i:i+len(phrase)], phrase) {
			return true
		}
	}
	return false
}
