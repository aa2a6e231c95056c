package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:", false)
	require.NoError(t, err)
	require.NoError(t, SeedSample(context.Background(), db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func TestSeedSample_Idempotent(t *testing.T) {
	db := newSeededDB(t)
	require.NoError(t, SeedSample(context.Background(), db))

	var employees, departments, projects int64
	require.NoError(t, db.Model(&Employee{}).Count(&employees).Error)
	require.NoError(t, db.Model(&Department{}).Count(&departments).Error)
	require.NoError(t, db.Model(&Project{}).Count(&projects).Error)

	assert.EqualValues(t, 10, employees)
	assert.EqualValues(t, 5, departments)
	assert.EqualValues(t, 3, projects)
}

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    string
		wantErr error
	}{
		{"select", "SELECT name FROM employees;", "SELECT name FROM employees", nil},
		{"cte", "with e as (select * from employees) select count(*) from e", "with e as (select * from employees) select count(*) from e", nil},
		{"empty", "  ; ", "", ErrEmptyQuery},
		{"delete", "DELETE FROM employees", "", ErrNotReadOnly},
		{"hidden update", "SELECT 1; UPDATE employees SET salary = 0", "", ErrMultiStatement},
		{"cte with dml", "WITH x AS (DELETE FROM employees RETURNING *) SELECT * FROM x", "", ErrNotReadOnly},
		{"pragma", "PRAGMA table_info(employees)", "", ErrNotReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateReadOnly(tt.sql)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunReadOnly(t *testing.T) {
	db := newSeededDB(t)

	res, err := RunReadOnly(context.Background(), db,
		"SELECT name, salary FROM employees WHERE department = 'Engineering' ORDER BY salary DESC", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "salary"}, res.Columns)
	assert.Equal(t, [][]string{
		{"Alice Brown", "92000"},
		{"Edward Chen", "88000"},
		{"John Doe", "85000"},
	}, res.Rows)
	assert.False(t, res.Truncated)

	res, err = RunReadOnly(context.Background(), db, "SELECT id FROM employees ORDER BY id", 4)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)
	assert.True(t, res.Truncated)

	_, err = RunReadOnly(context.Background(), db, "DROP TABLE employees", 4)
	assert.ErrorIs(t, err, ErrNotReadOnly)

	_, err = RunReadOnly(context.Background(), db, "SELECT nope FROM employees", 4)
	assert.Error(t, err)
}

func TestDescribeSchema(t *testing.T) {
	db := newSeededDB(t)

	schema, err := DescribeSchema(context.Background(), db)
	require.NoError(t, err)

	lines := strings.Split(schema, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Table departments(")
	assert.Contains(t, lines[1], "Table employees(")
	assert.Contains(t, lines[1], "hire_date")
	assert.Contains(t, lines[2], "Table projects(")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn", false)
	assert.Error(t, err)
}
