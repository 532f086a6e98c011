// Package config provides configuration loading for recalld.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Config is the root configuration for the daemon.
type Config struct {
	Logging     LoggingConfig             `koanf:"logging"`
	Record      RecordConfig              `koanf:"record"`
	VectorStore vectorstore.Config        `koanf:"vectorstore"`
	Embedding   embeddings.ProviderConfig `koanf:"embedding"`
	Search      SearchConfig              `koanf:"search"`
	Lifecycle   LifecycleConfig           `koanf:"lifecycle"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is json or console.
	Format string `koanf:"format"`
}

// RecordConfig locates the structured record store.
type RecordConfig struct {
	// Path is the SQLite database file. Parent directories are created
	// on open.
	Path string `koanf:"path"`
}

// SearchConfig sets hybrid search defaults; per-call options override.
type SearchConfig struct {
	// DefaultTopK is used when a search request omits top_k.
	DefaultTopK int `koanf:"default_top_k"`
	// Fusion is rrf or score_average.
	Fusion string `koanf:"fusion"`
	// RRFK is the rank-smoothing constant for rrf fusion.
	RRFK int `koanf:"rrf_k"`
}

// LifecycleConfig tunes the confidence lifecycle and its scheduler.
type LifecycleConfig struct {
	// BoostAmount is added to an observation's confidence each time its
	// full detail is fetched.
	BoostAmount float64 `koanf:"boost_amount"`
	// DecayFactor multiplies observation confidence on each scheduled
	// pass.
	DecayFactor float64 `koanf:"decay_factor"`
	// DecayInterval is the time between scheduled decay passes.
	DecayInterval time.Duration `koanf:"decay_interval"`
	// DecayProjects are the projects aged by the scheduler. Empty
	// disables scheduled decay.
	DecayProjects []string `koanf:"decay_projects"`
	// CompactMinConfidence is the default threshold for compaction.
	CompactMinConfidence float64 `koanf:"compact_min_confidence"`
	// CompactKeepTop bounds rows removed per compaction pass. Zero
	// means unbounded.
	CompactKeepTop int `koanf:"compact_keep_top"`
}

// applyDefaults fills zero values with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Record.Path == "" {
		cfg.Record.Path = "~/.local/share/recalld/records.db"
	}
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = vectorstore.ProviderChromem
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "~/.local/share/recalld/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "tei"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8080"
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.Fusion == "" {
		cfg.Search.Fusion = "rrf"
	}
	if cfg.Search.RRFK == 0 {
		cfg.Search.RRFK = 60
	}
	if cfg.Lifecycle.BoostAmount == 0 {
		cfg.Lifecycle.BoostAmount = 0.05
	}
	if cfg.Lifecycle.DecayFactor == 0 {
		cfg.Lifecycle.DecayFactor = 0.95
	}
	if cfg.Lifecycle.DecayInterval == 0 {
		cfg.Lifecycle.DecayInterval = 24 * time.Hour
	}
	if cfg.Lifecycle.CompactMinConfidence == 0 {
		cfg.Lifecycle.CompactMinConfidence = 0.3
	}
}

// Validate checks configuration consistency. Called after defaults are
// applied, so zero values that have defaults never reach here.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	switch c.VectorStore.Provider {
	case vectorstore.ProviderQdrant, vectorstore.ProviderChromem:
	default:
		return fmt.Errorf("invalid vectorstore provider %q", c.VectorStore.Provider)
	}
	switch c.Embedding.Provider {
	case "tei", "hash":
	default:
		return fmt.Errorf("invalid embedding provider %q", c.Embedding.Provider)
	}
	if c.Search.DefaultTopK < 1 {
		return fmt.Errorf("search default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	switch c.Search.Fusion {
	case "rrf", "score_average":
	default:
		return fmt.Errorf("invalid search fusion %q", c.Search.Fusion)
	}
	if c.Search.RRFK < 1 {
		return fmt.Errorf("search rrf_k must be positive, got %d", c.Search.RRFK)
	}
	if c.Lifecycle.BoostAmount < 0 || c.Lifecycle.BoostAmount > 1 {
		return fmt.Errorf("lifecycle boost_amount must be in [0,1], got %v", c.Lifecycle.BoostAmount)
	}
	if c.Lifecycle.DecayFactor < 0 || c.Lifecycle.DecayFactor > 1 {
		return fmt.Errorf("lifecycle decay_factor must be in [0,1], got %v", c.Lifecycle.DecayFactor)
	}
	if c.Lifecycle.CompactMinConfidence < 0 || c.Lifecycle.CompactMinConfidence > 1 {
		return fmt.Errorf("lifecycle compact_min_confidence must be in [0,1], got %v", c.Lifecycle.CompactMinConfidence)
	}
	if c.Lifecycle.CompactKeepTop < 0 {
		return fmt.Errorf("lifecycle compact_keep_top cannot be negative, got %d", c.Lifecycle.CompactKeepTop)
	}
	return nil
}
