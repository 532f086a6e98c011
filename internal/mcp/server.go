// Package mcp exposes the memory engine as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/hybrid"
	"github.com/fyrsmithlabs/recalld/internal/memorybank"
)

// Config holds server identity and tool defaults. Per-call arguments
// override the defaults.
type Config struct {
	Name    string
	Version string
	Logger  *zap.Logger

	// DefaultTopK applies when memory_search omits top_k.
	DefaultTopK int
	// Fusion is the default fusion algorithm for memory_search.
	Fusion hybrid.Fusion
	// RRFK is the rank-smoothing constant for rrf fusion.
	RRFK int
	// BoostAmount is added to an observation's confidence on each
	// observation_get.
	BoostAmount float64
	// CompactMinConfidence and CompactKeepTop apply when memory_compact
	// omits them.
	CompactMinConfidence float64
	CompactKeepTop       int
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:                 "recalld",
		Version:              "dev",
		Logger:               zap.NewNop(),
		DefaultTopK:          10,
		Fusion:               hybrid.FusionRRF,
		RRFK:                 hybrid.DefaultRRFK,
		BoostAmount:          0.05,
		CompactMinConfidence: 0.3,
	}
}

// Server wires the memory engine's services to MCP tools.
type Server struct {
	mcp       *mcp.Server
	memorySvc *memorybank.Service
	lifecycle *memorybank.Lifecycle
	engine    *hybrid.Engine
	records   memorybank.RecordStore
	cfg       *Config
	logger    *zap.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(
	cfg *Config,
	memorySvc *memorybank.Service,
	lifecycle *memorybank.Lifecycle,
	engine *hybrid.Engine,
	records memorybank.RecordStore,
) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if memorySvc == nil {
		return nil, fmt.Errorf("memory service is required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		memorySvc: memorySvc,
		lifecycle: lifecycle,
		engine:    engine,
		records:   records,
		cfg:       cfg,
		logger:    cfg.Logger,
	}

	s.registerMemoryTools()
	s.registerObservationTools()
	s.registerLifecycleTools()
	s.registerSearchTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport and blocks until
// the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
