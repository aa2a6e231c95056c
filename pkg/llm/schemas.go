package llm

import (
	"encoding/json"
	"fmt"
)

// Schema names a JSON-schema the model must answer with.
type Schema struct {
	Name       string
	Definition map[string]interface{}
}

func (s Schema) Instruction() string {
	def, _ := json.Marshal(s.Definition)
	return fmt.Sprintf("Respond ONLY with a JSON object matching this schema, no prose:\n%s", def)
}

func binaryScoreSchema(name, description string) Schema {
	return Schema{
		Name: name,
		Definition: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"binary_score": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"yes", "no"},
					"description": description,
				},
			},
			"required": []string{"binary_score"},
		},
	}
}

var (
	GradeDocumentsSchema = binaryScoreSchema("GradeDocuments",
		"Documents are relevant to the question, 'yes' or 'no'")

	// GradeHallucinationsSchema and GradeAnswerSchema are declared for callers that
	// add groundedness or usefulness checks. The self-RAG loop does not consult them.
	GradeHallucinationsSchema = binaryScoreSchema("GradeHallucinations",
		"Answer is grounded in the facts, 'yes' or 'no'")
	GradeAnswerSchema = binaryScoreSchema("GradeAnswer",
		"Answer addresses the question, 'yes' or 'no'")

	SearchQueriesSchema = Schema{
		Name: "SearchQueries",
		Definition: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"queries": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"maxItems":    3,
					"description": "1-3 specific search queries, or an empty list if the question is too vague",
				},
			},
			"required": []string{"queries"},
		},
	}

	RankingKeywordsSchema = Schema{
		Name: "RankingKeywords",
		Definition: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"keywords": map[string]interface{}{
					"type":     "array",
					"items":    map[string]interface{}{"type": "string"},
					"minItems": 5,
					"maxItems": 5,
				},
			},
			"required": []string{"keywords"},
		},
	}

	RouterDecisionSchema = Schema{
		Name: "RouterDecision",
		Definition: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"agent": map[string]interface{}{
					"type": "string",
					"enum": []string{"financial", "sql", "web"},
				},
			},
			"required": []string{"agent"},
		},
	}

	SQLQuerySchema = Schema{
		Name: "SQLQuery",
		Definition: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"sql": map[string]interface{}{
					"type":        "string",
					"description": "A single read-only SELECT statement",
				},
			},
			"required": []string{"sql"},
		},
	}
)

type BinaryScore struct {
	BinaryScore string `json:"binary_score"`
}

type SearchQueries struct {
	Queries []string `json:"queries"`
}

type RankingKeywords struct {
	Keywords []string `json:"keywords"`
}

type RouterDecision struct {
	Agent string `json:"agent"`
}

type SQLQuery struct {
	SQL string `json:"sql"`
}
