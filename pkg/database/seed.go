package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Employee, Department and Project make up the sample HR schema queried by the sql agent.
type Employee struct {
	ID         int `gorm:"primaryKey"`
	Name       string
	Email      string
	Department string
	Salary     int
	HireDate   string
	Position   string
}

type Department struct {
	ID        int `gorm:"primaryKey"`
	Name      string
	ManagerID int
	Budget    int
}

type Project struct {
	ID           int `gorm:"primaryKey"`
	Name         string
	DepartmentID int
	Status       string
}

var sampleEmployees = []Employee{
	{1, "John Doe", "john@example.com", "Engineering", 85000, "2020-01-15", "Senior Developer"},
	{2, "Jane Smith", "jane@example.com", "Marketing", 72000, "2019-03-20", "Marketing Manager"},
	{3, "Bob Johnson", "bob@example.com", "Sales", 68000, "2021-07-10", "Sales Executive"},
	{4, "Alice Brown", "alice@example.com", "Engineering", 92000, "2018-11-05", "Lead Developer"},
	{5, "Charlie Wilson", "charlie@example.com", "HR", 65000, "2022-02-28", "HR Specialist"},
	{6, "Diana Lee", "diana@example.com", "Finance", 75000, "2020-09-15", "Financial Analyst"},
	{7, "Edward Chen", "edward@example.com", "Engineering", 88000, "2021-04-12", "Software Engineer"},
	{8, "Fiona Wang", "fiona@example.com", "Marketing", 70000, "2019-08-22", "Marketing Specialist"},
	{9, "George Kim", "george@example.com", "Sales", 72000, "2023-01-10", "Sales Associate"},
	{10, "Helen Garcia", "helen@example.com", "HR", 68000, "2022-06-30", "HR Assistant"},
}

var sampleDepartments = []Department{
	{1, "Engineering", 1, 500000},
	{2, "Marketing", 2, 300000},
	{3, "Sales", 3, 400000},
	{4, "HR", 5, 200000},
	{5, "Finance", 6, 350000},
}

var sampleProjects = []Project{
	{1, "AI Platform Development", 1, "In Progress"},
	{2, "Q4 Marketing Campaign", 2, "Completed"},
	{3, "Sales Training Program", 3, "Planning"},
}

// SeedSample creates the HR tables and fills them once. An already seeded database is left untouched.
func SeedSample(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&Employee{}, &Department{}, &Project{}); err != nil {
		return fmt.Errorf("migrate sample schema: %w", err)
	}

	var count int64
	if err := db.Model(&Employee{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count employees: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cloneSlice(sampleEmployees)).Error; err != nil {
			return fmt.Errorf("seed employees: %w", err)
		}
		if err := tx.Create(cloneSlice(sampleDepartments)).Error; err != nil {
			return fmt.Errorf("seed departments: %w", err)
		}
		if err := tx.Create(cloneSlice(sampleProjects)).Error; err != nil {
			return fmt.Errorf("seed projects: %w", err)
		}
		return nil
	})
}

func cloneSlice[T any](in []T) *[]T {
	out := append([]T(nil), in...)
	return &out
}
