package index

import (
	"context"
	"fmt"
	"strconv"

	"finagent-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentChunk is one embedded chunk in postgres. Filter fields are denormalised
// out of Metadata so they can be indexed.
type DocumentChunk struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Content       string            `gorm:"type:text;not null"`
	CompanyName   string            `gorm:"index"`
	DocType       string            `gorm:"index"`
	FiscalYear    int               `gorm:"index"`
	FiscalQuarter string
	Page          int
	Source        string
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	Embedding     pgvector.Vector   `gorm:"type:vector(768)"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

type scoredChunk struct {
	DocumentChunk
	Similarity float64
}

// PgvectorIndex searches document_chunks by cosine distance.
type PgvectorIndex struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
}

var _ Index = (*PgvectorIndex)(nil)

func NewPgvectorIndex(db *gorm.DB, embedder embedding.EmbeddingProvider) *PgvectorIndex {
	return &PgvectorIndex{db: db, embedder: embedder}
}

func (p *PgvectorIndex) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	return p.db.WithContext(ctx).AutoMigrate(&DocumentChunk{})
}

func (p *PgvectorIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&DocumentChunk{}).Count(&n).Error
	return n, err
}

// Add embeds and stores docs.
func (p *PgvectorIndex) Add(ctx context.Context, docs ...Document) error {
	for _, d := range docs {
		emb, err := p.embedder.Generate(ctx, d.Content, embedding.TaskSearchDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", d.ID, err)
		}
		chunk := toChunk(d)
		chunk.Embedding = pgvector.NewVector(emb.Embedding.Values)
		if err := p.db.WithContext(ctx).Create(&chunk).Error; err != nil {
			return fmt.Errorf("store chunk %s: %w", d.ID, err)
		}
	}
	return nil
}

func (p *PgvectorIndex) Search(ctx context.Context, query string, filters Filters, k int) ([]Document, error) {
	if k <= 0 {
		return []Document{}, nil
	}

	emb, err := p.embedder.Generate(ctx, query, embedding.TaskSearchQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(emb.Embedding.Values)

	q := p.db.WithContext(ctx).
		Model(&DocumentChunk{}).
		Select("*, 1 - (embedding <=> ?) AS similarity", vec)
	q = applyFilters(q, filters)

	var rows []scoredChunk
	err = q.Order(gorm.Expr("embedding <=> ?", vec)).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		d := fromChunk(r.DocumentChunk)
		d.Score = r.Similarity
		docs = append(docs, d)
	}
	return docs, nil
}

func applyFilters(q *gorm.DB, f Filters) *gorm.DB {
	if f.Company != "" {
		q = q.Where("company_name = ?", f.Company)
	}
	if f.DocType != "" {
		q = q.Where("doc_type = ?", f.DocType)
	}
	if f.Year != 0 {
		q = q.Where("fiscal_year = ?", f.Year)
	}
	if f.Quarter != "" {
		q = q.Where("fiscal_quarter = ?", f.Quarter)
	}
	return q
}

func toChunk(d Document) DocumentChunk {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		id = uuid.New()
	}
	year, _ := strconv.Atoi(metaString(d.Metadata, MetaYear))
	page, _ := strconv.Atoi(metaString(d.Metadata, MetaPage))
	return DocumentChunk{
		ID:            id,
		Content:       d.Content,
		CompanyName:   metaString(d.Metadata, MetaCompany),
		DocType:       metaString(d.Metadata, MetaDocType),
		FiscalYear:    year,
		FiscalQuarter: metaString(d.Metadata, MetaQuarter),
		Page:          page,
		Source:        metaString(d.Metadata, MetaSource),
		Metadata:      datatypes.JSONMap(d.Metadata),
	}
}

func fromChunk(c DocumentChunk) Document {
	meta := map[string]interface{}{}
	for k, v := range c.Metadata {
		meta[k] = v
	}
	if c.CompanyName != "" {
		meta[MetaCompany] = c.CompanyName
	}
	if c.DocType != "" {
		meta[MetaDocType] = c.DocType
	}
	if c.FiscalYear != 0 {
		meta[MetaYear] = c.FiscalYear
	}
	if c.FiscalQuarter != "" {
		meta[MetaQuarter] = c.FiscalQuarter
	}
	if c.Page != 0 {
		meta[MetaPage] = c.Page
	}
	if c.Source != "" {
		meta[MetaSource] = c.Source
	}
	return Document{ID: c.ID.String(), Content: c.Content, Metadata: meta}
}
