package main

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/manager"
	"github.com/goran-ethernal/ChainReplay/internal/metrics"
	"github.com/goran-ethernal/ChainReplay/internal/notify"
	"github.com/goran-ethernal/ChainReplay/internal/parser"
	"github.com/goran-ethernal/ChainReplay/internal/replay"
	"github.com/goran-ethernal/ChainReplay/internal/rpc"
	"github.com/goran-ethernal/ChainReplay/internal/store"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

// app holds the wired components shared by the serve and replay commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *rpc.Client
	storage  events.Storage
	notifier *notify.Notifier
	bridge   *notify.NATSBridge
	manager  *manager.Manager
	metrics  *metrics.Server
}

// newApp connects to the node, opens storage, restores the index and builds the replay engine.
// The live follower and retention worker are only wired when live is set.
func newApp(ctx context.Context, cfg *config.Config, live bool) (_ *app, err error) {
	a := &app{
		cfg: cfg,
		log: logger.NewComponentLoggerFromConfig(common.ComponentIndexManager, cfg.Logging),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	p, err := parser.New(cfg.Chain.ChainID, cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	a.log.Info("Connecting to Ethereum node...")
	a.client, err = rpc.NewFromConfig(ctx, cfg.Chain, p.LogFilter(),
		logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	a.log.Infof("Connected to Ethereum node: %s", cfg.Chain.RPCURL)

	a.storage, err = store.New(ctx, cfg.Indexer, logger.NewComponentLoggerFromConfig(common.ComponentStore, cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Indexer.Storage, err)
	}

	a.notifier = notify.New(logger.NewComponentLoggerFromConfig(common.ComponentNotifier, cfg.Logging))
	if nc := cfg.Notifications; nc != nil && nc.NATS != nil && nc.NATS.Enabled {
		a.bridge, err = notify.ConnectNATS(nc.NATS, logger.NewComponentLoggerFromConfig(common.ComponentNotifier, cfg.Logging))
		if err != nil {
			return nil, err
		}
		a.bridge.Attach(a.notifier)
	}

	idx := eventindex.New(
		eventindex.Config{DefaultPageLimit: cfg.Indexer.DefaultPageLimit},
		a.storage,
		a.notifier,
		logger.NewComponentLoggerFromConfig(common.ComponentEventIndexer, cfg.Logging),
	)
	loaded, err := idx.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load events from storage: %w", err)
	}
	a.log.Infow("event index restored", "events", loaded, "storage", cfg.Indexer.Storage)

	replayLog := logger.NewComponentLoggerFromConfig(common.ComponentReplayEngine, cfg.Logging)

	var (
		checkpoints replay.CheckpointStore
		cursors     manager.CursorStore
	)
	if cfg.Replay.CheckpointDB != nil {
		sqlCheckpoints, err := replay.NewSQLiteCheckpoints(*cfg.Replay.CheckpointDB, replayLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open replay checkpoints: %w", err)
		}
		checkpoints = sqlCheckpoints
		cursors = manager.NewSQLiteCursor(sqlCheckpoints.DB(), sqlCheckpoints.Compactor(),
			logger.NewComponentLoggerFromConfig(common.ComponentLiveFollower, cfg.Logging))
	} else {
		checkpoints = replay.NewMemoryCheckpoints()
	}

	engine := replay.New(
		replay.Config{
			AverageBlockTime:       cfg.Chain.AverageBlockTime.Duration,
			MaxConsecutiveFailures: cfg.Replay.MaxConsecutiveFailures,
			HistorySize:            cfg.Replay.HistorySize,
			Defaults: pkgreplay.Config{
				BatchSize:    cfg.Replay.BatchSize,
				Delay:        cfg.Replay.Delay.Duration,
				SkipExisting: cfg.Replay.SkipExisting,
			},
		},
		a.client,
		p,
		idx,
		checkpoints,
		a.notifier,
		replayLog,
	)

	opts := []manager.Option{manager.WithHeadCheck(a.client)}
	if live {
		if cfg.Live != nil && cfg.Live.Enabled {
			follower := manager.NewFollower(
				manager.FollowerConfig{
					PollInterval:     cfg.Live.PollInterval.Duration,
					Confirmations:    cfg.Live.Confirmations,
					MaxBlocksPerPoll: cfg.Live.MaxBlocksPerPoll,
				},
				a.client,
				p,
				idx,
				cursors,
				logger.NewComponentLoggerFromConfig(common.ComponentLiveFollower, cfg.Logging),
			)
			opts = append(opts, manager.WithFollower(follower))
		}

		if cfg.Indexer.Retention.Duration > 0 {
			var compactor eventindex.Compactor
			if c, ok := a.storage.(store.Compactor); ok {
				compactor = c
			}
			opts = append(opts, manager.WithRetention(eventindex.NewRetentionWorker(
				idx,
				cfg.Indexer.Retention.Duration,
				cfg.Indexer.CleanupInterval.Duration,
				compactor,
				logger.NewComponentLoggerFromConfig(common.ComponentRetention, cfg.Logging),
			)))
		}
	}

	a.manager = manager.New(idx, engine, a.notifier, a.log, opts...)

	return a, nil
}

// startMetrics serves /metrics and /health when metrics are enabled.
func (a *app) startMetrics(ctx context.Context) error {
	if a.cfg.Metrics == nil || !a.cfg.Metrics.Enabled {
		return nil
	}

	a.metrics = metrics.NewServer(a.cfg.Metrics, a.manager.Health,
		logger.NewComponentLoggerFromConfig(common.ComponentMetricsServer, a.cfg.Logging))
	if err := a.metrics.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// close releases everything newApp opened, in reverse order.
func (a *app) close() {
	if a.metrics != nil {
		if err := a.metrics.Stop(context.Background()); err != nil {
			a.log.Warnw("failed to stop metrics server", "error", err)
		}
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			a.log.Warnw("failed to close replay engine", "error", err)
		}
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warnw("failed to close storage", "error", err)
		}
	}
	if a.client != nil {
		a.client.Close()
	}
}
