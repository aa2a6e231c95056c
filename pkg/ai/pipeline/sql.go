package pipeline

import (
	"context"
	"fmt"
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/database"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"

	"gorm.io/gorm"
)

const sqlMaxRows = 50

// SQLPipeline answers questions about the internal HR database by generating,
// checking and running one read-only query.
type SQLPipeline struct {
	db      *gorm.DB
	llm     llm.LLMProvider
	logger  logger.ILogger
	maxRows int
}

func NewSQLPipeline(db *gorm.DB, provider llm.LLMProvider, log logger.ILogger) *SQLPipeline {
	return &SQLPipeline{db: db, llm: provider, logger: log, maxRows: sqlMaxRows}
}

func (p *SQLPipeline) Respond(ctx context.Context, question string) (*Result, error) {
	meta := map[string]interface{}{"query_type": "database"}

	schema, err := database.DescribeSchema(ctx, p.db)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}

	sql, err := p.generateSQL(ctx, prompt.SQLGenerateSystem, prompt.SQLGenerateUser(schema, question))
	if err != nil {
		p.logger.Warn("SQL_AGENT", "SQL generation failed", map[string]interface{}{"error": err.Error()})
		meta["error"] = true
		return &Result{
			Reply:    "I couldn't turn that question into a database query. Try asking about employees, departments or projects.",
			Metadata: meta,
		}, nil
	}

	result, err := database.RunReadOnly(ctx, p.db, sql, p.maxRows)
	if err != nil {
		p.logger.Warn("SQL_AGENT", "Query failed, asking model for a fix", map[string]interface{}{
			"sql":   sql,
			"error": err.Error(),
		})

		fixed, fixErr := p.generateSQL(ctx, prompt.SQLFixSystem, prompt.SQLFixUser(schema, question, sql, err.Error()))
		if fixErr == nil {
			meta["fixed"] = true
			sql = fixed
			result, err = database.RunReadOnly(ctx, p.db, sql, p.maxRows)
		}
		if err != nil {
			meta["sql"] = sql
			meta["error"] = true
			return &Result{
				Reply:    fmt.Sprintf("The database query failed: %s", err.Error()),
				Metadata: meta,
			}, nil
		}
	}

	table := RenderTable(result)
	meta["sql"] = sql
	meta["row_count"] = len(result.Rows)
	meta["has_results"] = len(result.Rows) > 0
	meta["truncated"] = result.Truncated

	p.logger.Info("SQL_AGENT", "Query executed", map[string]interface{}{
		"sql":  sql,
		"rows": len(result.Rows),
	})

	summary, err := llm.Complete(ctx, p.llm, prompt.SQLAnswerSystem, prompt.SQLAnswerUser(question, sql, table))
	summary = llm.StripThinking(summary)
	if err != nil || summary == "" {
		return &Result{Reply: "Query results:\n\n" + table, Metadata: meta}, nil
	}
	return &Result{Reply: summary, Metadata: meta}, nil
}

// Execute runs caller-supplied SQL directly, skipping generation.
func (p *SQLPipeline) Execute(ctx context.Context, sql string) (*database.QueryResult, error) {
	return database.RunReadOnly(ctx, p.db, sql, p.maxRows)
}

func (p *SQLPipeline) generateSQL(ctx context.Context, system, user string) (string, error) {
	var out llm.SQLQuery
	if err := llm.CompleteStructured(ctx, p.llm, llm.SQLQuerySchema, system, user, &out); err != nil {
		return "", err
	}
	return database.ValidateReadOnly(out.SQL)
}

// RenderTable formats rows as a markdown table. Pipes inside cells are escaped.
func RenderTable(r *database.QueryResult) string {
	if r == nil || len(r.Columns) == 0 {
		return "_No columns returned._"
	}
	if len(r.Rows) == 0 {
		return "_No matching rows._"
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(r.Columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(r.Columns)) + "\n")
	for _, row := range r.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	if r.Truncated {
		fmt.Fprintf(&b, "\n_Showing the first %d rows._\n", len(r.Rows))
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}
