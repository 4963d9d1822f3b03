package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/config"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

var replayFlags struct {
	fromBlock    int64
	toBlock      int64
	fromTime     string
	toTime       string
	events       []string
	addresses    []string
	batchSize    int
	delay        time.Duration
	skipExisting bool
	resume       bool
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a historical block range into the index and exit",
	Long: `Replay fetches a historical block range, decodes its logs and stores the resulting
events in the configured storage. Unset flags fall back to the replay section of the
config file. With --resume the most recent unfinished session continues from its
checkpoint; resuming across restarts needs replay.checkpoint_db.`,
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.Int64Var(&replayFlags.fromBlock, "from-block", 0, "first block to replay")
	f.Int64Var(&replayFlags.toBlock, "to-block", 0, "last block to replay (default latest)")
	f.StringVar(&replayFlags.fromTime, "from-time", "", "start time, RFC3339 or unix timestamp")
	f.StringVar(&replayFlags.toTime, "to-time", "", "end time, RFC3339 or unix timestamp")
	f.StringSliceVar(&replayFlags.events, "events", nil, "event names to keep (default all)")
	f.StringSliceVar(&replayFlags.addresses, "addresses", nil, "contract addresses to keep (default all)")
	f.IntVar(&replayFlags.batchSize, "batch-size", 0, "blocks per batch")
	f.DurationVar(&replayFlags.delay, "delay", 0, "pause between batches")
	f.BoolVar(&replayFlags.skipExisting, "skip-existing", false, "skip events that are already indexed")
	f.BoolVar(&replayFlags.resume, "resume", false, "resume the latest unfinished session")
	replayCmd.MarkFlagsMutuallyExclusive("resume", "from-block")
	replayCmd.MarkFlagsMutuallyExclusive("resume", "from-time")
}

// replayConfig overlays the flags the user set on the engine defaults.
func replayConfig(cmd *cobra.Command, defaults pkgreplay.Config) (pkgreplay.Config, error) {
	cfg := defaults
	flags := cmd.Flags()

	if flags.Changed("from-block") {
		v := replayFlags.fromBlock
		cfg.FromBlock = &v
	}
	if flags.Changed("to-block") {
		v := replayFlags.toBlock
		cfg.ToBlock = &v
	}
	if flags.Changed("from-time") {
		t, err := common.ParseTime(replayFlags.fromTime)
		if err != nil {
			return cfg, fmt.Errorf("--from-time: %w", err)
		}
		cfg.FromTime = &t
	}
	if flags.Changed("to-time") {
		t, err := common.ParseTime(replayFlags.toTime)
		if err != nil {
			return cfg, fmt.Errorf("--to-time: %w", err)
		}
		cfg.ToTime = &t
	}
	if flags.Changed("events") {
		cfg.EventNames = replayFlags.events
	}
	if flags.Changed("addresses") {
		cfg.Addresses = replayFlags.addresses
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = replayFlags.batchSize
	}
	if flags.Changed("delay") {
		cfg.Delay = replayFlags.delay
	}
	if flags.Changed("skip-existing") {
		cfg.SkipExisting = replayFlags.skipExisting
	}

	return cfg, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentReplayEngine, cfg.Logging)

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	engine := a.manager.Replay()

	unsubscribe := a.manager.Subscribe(func(n events.Notification) {
		if u, ok := n.Payload.(pkgreplay.Update); ok && u.Progress != nil {
			log.Infow("replay progress",
				"session", u.SessionID,
				"block", u.Progress.CurrentBlock,
				"to", u.Progress.ToBlock,
				"percent", u.Progress.Percentage,
			)
		}
	}, events.TopicReplayProgress)
	defer unsubscribe()

	var session *pkgreplay.Session
	if replayFlags.resume {
		if _, err := engine.ResumeFromCheckpoint(ctx); err != nil {
			return fmt.Errorf("failed to resume replay: %w", err)
		}
		session, err = engine.Wait(ctx)
	} else {
		var rc pkgreplay.Config
		if rc, err = replayConfig(cmd, engine.DefaultConfig()); err != nil {
			return err
		}
		session, err = engine.Run(ctx, rc)
	}

	var verr *pkgreplay.ValidationError
	if errors.As(err, &verr) {
		for _, msg := range verr.Errors {
			log.Errorw("invalid replay config", "error", msg)
		}
		return err
	}

	if session != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(session); encErr != nil {
			log.Warnw("failed to print session", "error", encErr)
		}
	}

	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	return nil
}
