// Package index is the document search capability behind the retriever.
package index

import (
	"context"
	"fmt"
	"strings"
)

// Metadata keys understood by filters and rendered in retrieval output.
const (
	MetaCompany = "company_name"
	MetaDocType = "doc_type"
	MetaYear    = "fiscal_year"
	MetaQuarter = "fiscal_quarter"
	MetaPage    = "page"
	MetaSource  = "source"
)

type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	// Score is the backend's relevance signal, higher is better.
	Score float64 `json:"-"`
}

// Filters narrow a search. Zero fields do not filter.
type Filters struct {
	Company string
	DocType string
	Year    int
	Quarter string
}

func (f Filters) IsZero() bool {
	return f == Filters{}
}

func (f Filters) String() string {
	var parts []string
	if f.Company != "" {
		parts = append(parts, "company="+f.Company)
	}
	if f.DocType != "" {
		parts = append(parts, "doc_type="+f.DocType)
	}
	if f.Year != 0 {
		parts = append(parts, fmt.Sprintf("year=%d", f.Year))
	}
	if f.Quarter != "" {
		parts = append(parts, "quarter="+f.Quarter)
	}
	return strings.Join(parts, ",")
}

// Matches applies f to a document's metadata.
func (f Filters) Matches(meta map[string]interface{}) bool {
	if f.Company != "" && !strings.EqualFold(metaString(meta, MetaCompany), f.Company) {
		return false
	}
	if f.DocType != "" && !strings.EqualFold(metaString(meta, MetaDocType), f.DocType) {
		return false
	}
	if f.Quarter != "" && !strings.EqualFold(metaString(meta, MetaQuarter), f.Quarter) {
		return false
	}
	if f.Year != 0 && metaString(meta, MetaYear) != fmt.Sprint(f.Year) {
		return false
	}
	return true
}

// Index returns up to k documents ordered by descending Score. No match is an empty slice, not an error.
type Index interface {
	Search(ctx context.Context, query string, filters Filters, k int) ([]Document, error)
}

func metaString(meta map[string]interface{}, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprint(int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
