package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Model.BaseURL)
	assert.Equal(t, 512, cfg.Model.MaxLength)
	assert.Equal(t, 768, cfg.Model.Dimension)
	assert.Equal(t, 2000, cfg.Segmenter.WindowSize)
	assert.Equal(t, 200, cfg.Segmenter.WindowOverlap)
	assert.Equal(t, 500, cfg.Segmenter.WordsPerPage)
	assert.Equal(t, 50, cfg.Segmenter.MinContentChars)
	assert.Equal(t, 3, cfg.Segmenter.ContextWindows)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	require.NotNil(t, cfg.Index.SQLite)
	assert.Equal(t, "docvec.db", cfg.Index.SQLite.Path)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 3000, cfg.Batch.MaxTokens)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model:
  base_url: http://model:9000
  dimension: 384
segmenter:
  window_size: 1000
index:
  backend: qdrant
  qdrant:
    url: http://qdrant:6333
    collection: records
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://model:9000", cfg.Model.BaseURL)
	assert.Equal(t, 384, cfg.Model.Dimension)
	assert.Equal(t, 1000, cfg.Segmenter.WindowSize)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	require.NotNil(t, cfg.Index.Qdrant)
	assert.Equal(t, "http://qdrant:6333", cfg.Index.Qdrant.URL)
	assert.Equal(t, "records", cfg.Index.Qdrant.Collection)

	// Unset fields still get defaults.
	assert.Equal(t, 512, cfg.Model.MaxLength)
	assert.Equal(t, "QDRANT_API_KEY", cfg.Index.Qdrant.APIKeyEnv)
	assert.Equal(t, 15, cfg.Index.Qdrant.TimeoutSecs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCVEC_MODEL_URL", "http://override:7000")
	t.Setenv("DOCVEC_INDEX_BACKEND", "qdrant")
	t.Setenv("DOCVEC_QDRANT_URL", "http://override:6333")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://override:7000", cfg.Model.BaseURL)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	require.NotNil(t, cfg.Index.Qdrant)
	assert.Equal(t, "http://override:6333", cfg.Index.Qdrant.URL)
}

func TestQdrantAPIKey(t *testing.T) {
	t.Setenv("QDRANT_API_KEY", "secret")

	cfg := defaultConfig()
	assert.Equal(t, "", cfg.QdrantAPIKey(), "sqlite default has no qdrant section requiring a key")

	cfg.Index.Qdrant = &QdrantConfig{APIKeyEnv: "QDRANT_API_KEY"}
	assert.Equal(t, "secret", cfg.QdrantAPIKey())
}
