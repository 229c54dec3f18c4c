// Package config loads the application configuration from YAML, with a .env
// file and environment variables overriding connection details.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ModelConfig holds connection details for the model-serving collaborator.
type ModelConfig struct {
	BaseURL     string `yaml:"base_url"`
	MaxLength   int    `yaml:"max_length"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SegmenterConfig configures how documents are split into chunks.
type SegmenterConfig struct {
	WindowSize          int      `yaml:"window_size"`
	WindowOverlap       int      `yaml:"window_overlap"`
	WordsPerPage        int      `yaml:"words_per_page"`
	MinContentChars     int      `yaml:"min_content_chars"`
	ContextWindows      int      `yaml:"context_windows"`
	BoilerplatePatterns []string `yaml:"boilerplate_patterns,omitempty"`
}

// SQLiteConfig contains settings for the embedded SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig contains connection details for a Qdrant backend.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the index store backend.
type IndexConfig struct {
	Backend string        `yaml:"backend"`
	SQLite  *SQLiteConfig `yaml:"sqlite,omitempty"`
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
}

// IngestConfig bounds pipeline concurrency.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// RetrievalConfig sets query-side defaults.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// BatchConfig sets the summarization token budget.
type BatchConfig struct {
	MaxTokens int `yaml:"max_tokens"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Model     ModelConfig     `yaml:"model"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Batch     BatchConfig     `yaml:"batch"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. A .env file in the working directory is loaded first so
// environment overrides apply either way.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./docvec.yaml first, then ~/.config/docvec/config.yaml,
// falling back to defaults when neither exists.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docvec.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg, err := Load(cwdPath) // does not exist, yields defaults + env
	return cfg, "", err
}

// QdrantAPIKey resolves the Qdrant API key from the configured environment
// variable.
func (c *AppConfig) QdrantAPIKey() string {
	if c.Index.Qdrant == nil {
		return ""
	}
	return os.Getenv(c.Index.Qdrant.APIKeyEnv)
}

// ModelTimeout returns the model client timeout as a duration.
func (c *ModelConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the Qdrant client timeout as a duration.
func (c *QdrantConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docvec", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "http://localhost:8080"
	}
	if cfg.Model.MaxLength == 0 {
		cfg.Model.MaxLength = 512
	}
	if cfg.Model.Dimension == 0 {
		cfg.Model.Dimension = 768
	}
	if cfg.Model.TimeoutSecs == 0 {
		cfg.Model.TimeoutSecs = 30
	}

	if cfg.Segmenter.WindowSize == 0 {
		cfg.Segmenter.WindowSize = 2000
	}
	if cfg.Segmenter.WindowOverlap == 0 {
		cfg.Segmenter.WindowOverlap = 200
	}
	if cfg.Segmenter.WordsPerPage == 0 {
		cfg.Segmenter.WordsPerPage = 500
	}
	if cfg.Segmenter.MinContentChars == 0 {
		cfg.Segmenter.MinContentChars = 50
	}
	if cfg.Segmenter.ContextWindows == 0 {
		cfg.Segmenter.ContextWindows = 3
	}

	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "sqlite"
	}
	if cfg.Index.Backend == "sqlite" && cfg.Index.SQLite == nil {
		cfg.Index.SQLite = &SQLiteConfig{}
	}
	if cfg.Index.SQLite != nil && cfg.Index.SQLite.Path == "" {
		cfg.Index.SQLite.Path = "docvec.db"
	}
	if cfg.Index.Backend == "qdrant" && cfg.Index.Qdrant == nil {
		cfg.Index.Qdrant = &QdrantConfig{}
	}
	if cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.URL == "" {
			cfg.Index.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Index.Qdrant.APIKeyEnv == "" {
			cfg.Index.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "chunks"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Batch.MaxTokens == 0 {
		cfg.Batch.MaxTokens = 3000
	}
}

// applyEnvOverrides lets deployment environments override connection details
// without editing the config file.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DOCVEC_MODEL_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("DOCVEC_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("DOCVEC_SQLITE_PATH"); v != "" {
		if cfg.Index.SQLite == nil {
			cfg.Index.SQLite = &SQLiteConfig{}
		}
		cfg.Index.SQLite.Path = v
	}
	if v := os.Getenv("DOCVEC_QDRANT_URL"); v != "" {
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{APIKeyEnv: "QDRANT_API_KEY", Collection: "chunks", TimeoutSecs: 15}
		}
		cfg.Index.Qdrant.URL = v
	}
}
