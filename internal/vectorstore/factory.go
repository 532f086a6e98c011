package vectorstore

import (
	"fmt"
	"time"
)

// Provider names accepted by the factory.
const (
	ProviderQdrant  = "qdrant"
	ProviderChromem = "chromem"
)

// Config selects and configures a Store implementation.
type Config struct {
	// Provider is "qdrant" (external gRPC engine) or "chromem"
	// (embedded). Default: "chromem".
	Provider string `koanf:"provider"`

	Qdrant  QdrantFileConfig  `koanf:"qdrant"`
	Chromem ChromemFileConfig `koanf:"chromem"`
}

// QdrantFileConfig is the config-file shape of QdrantConfig.
type QdrantFileConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	UseTLS       bool          `koanf:"use_tls"`
	MaxRetries   int           `koanf:"max_retries"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// ChromemFileConfig is the config-file shape of ChromemConfig.
type ChromemFileConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// New creates a Store for the configured provider.
func New(cfg Config) (Store, error) {
	switch cfg.Provider {
	case ProviderQdrant:
		return NewQdrantStore(QdrantConfig{
			Host:         cfg.Qdrant.Host,
			Port:         cfg.Qdrant.Port,
			UseTLS:       cfg.Qdrant.UseTLS,
			MaxRetries:   cfg.Qdrant.MaxRetries,
			RetryBackoff: cfg.Qdrant.RetryBackoff,
		})
	case ProviderChromem, "":
		return NewChromemStore(ChromemConfig{
			Path:     cfg.Chromem.Path,
			Compress: cfg.Chromem.Compress,
		})
	default:
		return nil, fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
