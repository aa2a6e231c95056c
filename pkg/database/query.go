package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEmptyQuery     = errors.New("empty sql query")
	ErrNotReadOnly    = errors.New("only SELECT queries are allowed")
	ErrMultiStatement = errors.New("only one statement is allowed")
)

var (
	wordPattern = regexp.MustCompile(`[A-Za-z_]+`)

	forbiddenKeywords = map[string]struct{}{
		"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {}, "create": {},
		"replace": {}, "truncate": {}, "attach": {}, "detach": {}, "pragma": {}, "grant": {},
		"revoke": {}, "vacuum": {}, "merge": {}, "copy": {},
	}
)

// ValidateReadOnly returns the statement without a trailing semicolon, or an error when it
// is anything other than a single SELECT or WITH ... SELECT.
func ValidateReadOnly(sql string) (string, error) {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, "; \n\t"))
	if stmt == "" {
		return "", ErrEmptyQuery
	}
	if strings.Contains(stmt, ";") {
		return "", ErrMultiStatement
	}

	words := wordPattern.FindAllString(stmt, -1)
	if len(words) == 0 {
		return "", ErrNotReadOnly
	}
	first := strings.ToLower(words[0])
	if first != "select" && first != "with" {
		return "", ErrNotReadOnly
	}
	for _, w := range words {
		if _, bad := forbiddenKeywords[strings.ToLower(w)]; bad {
			return "", fmt.Errorf("%w: found %s", ErrNotReadOnly, strings.ToUpper(w))
		}
	}
	return stmt, nil
}

type QueryResult struct {
	Columns []string
	Rows    [][]string
	// Truncated is set when more than maxRows rows were available.
	Truncated bool
}

// RunReadOnly validates and executes sql, keeping at most maxRows rows.
func RunReadOnly(ctx context.Context, db *gorm.DB, sql string, maxRows int) (*QueryResult, error) {
	stmt, err := ValidateReadOnly(sql)
	if err != nil {
		return nil, err
	}

	rows, err := db.WithContext(ctx).Raw(stmt).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

// DescribeSchema lists every table with its columns, sorted by table name.
func DescribeSchema(ctx context.Context, db *gorm.DB) (string, error) {
	migrator := db.WithContext(ctx).Migrator()

	tables, err := migrator.GetTables()
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	sort.Strings(tables)

	var b strings.Builder
	for _, table := range tables {
		columns, err := migrator.ColumnTypes(table)
		if err != nil {
			return "", fmt.Errorf("describe %s: %w", table, err)
		}

		parts := make([]string, 0, len(columns))
		for _, c := range columns {
			parts = append(parts, fmt.Sprintf("%s %s", c.Name(), strings.ToUpper(c.DatabaseTypeName())))
		}
		fmt.Fprintf(&b, "Table %s(%s)\n", table, strings.Join(parts, ", "))
	}
	return strings.TrimSpace(b.String()), nil
}
