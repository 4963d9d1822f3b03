package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/config"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/api"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          ChainReplay v%s                ║
║   Blockchain Event Indexing and Replay    ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	envFiles   []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "ChainReplay - blockchain event indexing and historical replay",
	Long: `ChainReplay indexes decoded blockchain events into a searchable in-memory index
backed by pluggable storage, follows the chain head for new events and replays
historical block ranges on demand.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFiles(envFiles...)
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indexer with the live follower, REST API and metrics",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the config")
	rootCmd.AddCommand(serveCmd, replayCmd, validateCmd, schemaCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentIndexManager, cfg.Logging)

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.startMetrics(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.manager.Run(gctx)
	})

	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(
			cfg.API,
			a.manager,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging),
		)
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}

	log.Info("Starting ChainReplay...")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("indexer failed: %w", err)
	}

	log.Info("ChainReplay stopped successfully")
	return nil
}
