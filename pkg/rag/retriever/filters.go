package retriever

import (
	"regexp"
	"strconv"
	"strings"

	"finagent-be/pkg/rag/classifier"
	"finagent-be/pkg/rag/index"
)

var companyAliases = map[string]string{
	"amazon":    "amazon",
	"apple":     "apple",
	"google":    "google",
	"alphabet":  "google",
	"microsoft": "microsoft",
	"tesla":     "tesla",
	"nvidia":    "nvidia",
	"meta":      "meta",
	"facebook":  "meta",
}

var (
	yearPattern    = regexp.MustCompile(`\b(20\d{2})\b`)
	quarterPattern = regexp.MustCompile(`\bq([1-4])\b`)
)

var quarterWords = map[string]string{
	"first quarter":  "q1",
	"second quarter": "q2",
	"third quarter":  "q3",
	"fourth quarter": "q4",
}

var docTypePhrases = []struct {
	phrase  string
	docType string
}{
	{"10-k", "10-k"},
	{"10k", "10-k"},
	{"annual report", "10-k"},
	{"10-q", "10-q"},
	{"10q", "10-q"},
	{"quarterly report", "10-q"},
	{"8-k", "8-k"},
	{"8k", "8-k"},
}

// ExtractFilters derives company, year, quarter and document type from the query text.
func ExtractFilters(query string) index.Filters {
	q := strings.ToLower(query)
	var f index.Filters

	for _, tok := range classifier.Tokens(q) {
		if company, ok := companyAliases[tok]; ok {
			f.Company = company
			break
		}
	}

	if m := yearPattern.FindStringSubmatch(q); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
	}

	if m := quarterPattern.FindStringSubmatch(q); m != nil {
		f.Quarter = "q" + m[1]
	} else {
		for phrase, quarter := range quarterWords {
			if strings.Contains(q, phrase) {
				f.Quarter = quarter
				break
			}
		}
	}

	for _, dt := range docTypePhrases {
		if strings.Contains(q, dt.phrase) {
			f.DocType = dt.docType
			break
		}
	}

	return f
}
