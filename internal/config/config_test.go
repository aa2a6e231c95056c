package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RAG_MAX_TRANSFORMS", "")
	t.Setenv("RAG_TURN_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, 3, cfg.Rag.MaxTransforms)
	assert.Equal(t, 2, cfg.Rag.RetrieveGiveUp)
	assert.Equal(t, 3, cfg.Rag.TopK)
	assert.Equal(t, 10, cfg.Rag.OverFetch)
	assert.Equal(t, 30*time.Second, cfg.Rag.TurnTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RAG_MAX_TRANSFORMS", "5")
	t.Setenv("RAG_TURN_TIMEOUT", "45s")
	t.Setenv("DB_SEED_SAMPLE", "false")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, 5, cfg.Rag.MaxTransforms)
	assert.Equal(t, 45*time.Second, cfg.Rag.TurnTimeout)
	assert.False(t, cfg.Database.SeedSample)
	assert.InDelta(t, 0.2, cfg.Ai.Temperature, 1e-9)
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvAsDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
}
