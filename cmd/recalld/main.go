// Recalld is a semantic memory daemon speaking MCP over stdio.
//
// It stores memories and observations with vector embeddings, searches
// them with hybrid rank fusion, and ages them with a confidence
// lifecycle.
//
// Usage:
//
//	# Start the daemon with defaults (embedded vector store)
//	recalld serve
//
//	# Point at a config file
//	recalld serve --config ~/.config/recalld/config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/hybrid"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/mcp"
	"github.com/fyrsmithlabs/recalld/internal/memorybank"
	"github.com/fyrsmithlabs/recalld/internal/record"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "recalld",
	Short:   "Semantic memory daemon with hybrid retrieval",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recalld %s (%s)\n", version, gitCommit)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "config file path (default ~/.config/recalld/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure at exit is uninteresting

	return run(ctx, cfg, logger)
}

// run wires the services together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	records, err := record.Open(cfg.Record.Path)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer records.Close()

	embedder, err := embeddings.NewProvider(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer embedder.Close()

	vectors, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer vectors.Close()

	dim := embedder.Dimension()
	for _, collection := range []string{memorybank.CollectionMemories, memorybank.CollectionObservations} {
		if err := vectors.EnsureCollection(ctx, collection, dim); err != nil {
			return fmt.Errorf("ensuring collection %s: %w", collection, err)
		}
	}

	memorySvc, err := memorybank.NewService(records, vectors, embedder, logger)
	if err != nil {
		return err
	}
	lifecycle, err := memorybank.NewLifecycle(records, vectors, logger)
	if err != nil {
		return err
	}
	engine, err := hybrid.NewEngine(vectors, embedder, logger)
	if err != nil {
		return err
	}

	if len(cfg.Lifecycle.DecayProjects) > 0 {
		scheduler, err := memorybank.NewDecayScheduler(lifecycle, logger,
			memorybank.WithInterval(cfg.Lifecycle.DecayInterval),
			memorybank.WithDecayFactor(cfg.Lifecycle.DecayFactor),
			memorybank.WithProjectIDs(cfg.Lifecycle.DecayProjects),
		)
		if err != nil {
			return fmt.Errorf("creating decay scheduler: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop() //nolint:errcheck // Stop never fails
	}

	server, err := mcp.NewServer(&mcp.Config{
		Name:                 "recalld",
		Version:              version,
		Logger:               logger,
		DefaultTopK:          cfg.Search.DefaultTopK,
		Fusion:               hybrid.Fusion(cfg.Search.Fusion),
		RRFK:                 cfg.Search.RRFK,
		BoostAmount:          cfg.Lifecycle.BoostAmount,
		CompactMinConfidence: cfg.Lifecycle.CompactMinConfidence,
		CompactKeepTop:       cfg.Lifecycle.CompactKeepTop,
	}, memorySvc, lifecycle, engine, records)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("recalld starting",
		zap.String("version", version),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.Int("embedding_dim", dim))

	return server.Run(ctx)
}
