package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/metrics"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

const sourceLive = "live"

// Sink is the part of the event indexer the follower writes to.
type Sink interface {
	StoreEvents(ctx context.Context, evs []*events.ParsedEvent) (int, error)
}

// FollowerConfig tunes the live follower.
type FollowerConfig struct {
	PollInterval     time.Duration
	Confirmations    uint64
	MaxBlocksPerPoll uint64
}

// FollowerStatus is a snapshot of the follower.
type FollowerStatus struct {
	Running       bool       `json:"running"`
	Head          uint64     `json:"head"`
	LastBlock     *uint64    `json:"lastBlock,omitempty"`
	EventsIndexed int        `json:"eventsIndexed"`
	Errors        int        `json:"errors"`
	LastPoll      *time.Time `json:"lastPoll,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// Follower ingests confirmed blocks as the chain head advances.
type Follower struct {
	cfg     FollowerConfig
	source  events.DataSource
	parser  events.Parser
	sink    Sink
	cursors CursorStore
	log     *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	loaded  bool
	cursor  *Cursor
	running bool
	head    uint64
	errors  int
	polled  *time.Time
	lastErr string
}

// NewFollower creates a follower. A nil cursors keeps the position in memory.
func NewFollower(
	cfg FollowerConfig,
	source events.DataSource,
	parser events.Parser,
	sink Sink,
	cursors CursorStore,
	log *logger.Logger,
) *Follower {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cursors == nil {
		cursors = &MemoryCursor{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second //nolint:mnd
	}
	if cfg.MaxBlocksPerPoll == 0 {
		cfg.MaxBlocksPerPoll = 100 //nolint:mnd
	}

	return &Follower{
		cfg:     cfg,
		source:  source,
		parser:  parser,
		sink:    sink,
		cursors: cursors,
		log:     log,
		now:     time.Now,
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on the next tick.
func (f *Follower) Run(ctx context.Context) error {
	f.setRunning(true)
	defer f.setRunning(false)

	f.log.Infow("live follower started",
		"poll_interval", f.cfg.PollInterval,
		"confirmations", f.cfg.Confirmations,
		"max_blocks_per_poll", f.cfg.MaxBlocksPerPoll,
	)

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		// drain every confirmed block before waiting for the next tick
		for {
			n, caughtUp, err := f.poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				f.log.Warnw("live poll failed", "error", err)
				break
			}
			if n > 0 {
				f.log.Debugw("live poll indexed events", "events", n)
			}
			if caughtUp {
				break
			}
		}

		select {
		case <-ctx.Done():
			f.log.Info("live follower stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll ingests the next range of confirmed blocks and returns how many events were indexed.
func (f *Follower) Poll(ctx context.Context) (int, error) {
	n, _, err := f.poll(ctx)
	return n, err
}

func (f *Follower) poll(ctx context.Context) (int, bool, error) {
	start := f.now()

	cursor, err := f.loadCursor(ctx)
	if err != nil {
		return 0, true, f.fail(err)
	}

	head, err := f.source.LatestBlockNumber(ctx)
	if err != nil {
		return 0, true, f.fail(fmt.Errorf("failed to get chain head: %w", err))
	}
	metrics.ChainHeadSet(head)

	f.mu.Lock()
	f.head = head
	polled := f.now()
	f.polled = &polled
	f.mu.Unlock()

	if head < f.cfg.Confirmations {
		return 0, true, nil
	}
	safe := head - f.cfg.Confirmations

	next := safe
	if cursor != nil {
		next = cursor.LastBlock + 1
	}
	if next > safe {
		return 0, true, nil
	}

	to := safe
	if safe-next >= f.cfg.MaxBlocksPerPoll {
		to = next + f.cfg.MaxBlocksPerPoll - 1
	}

	blocks, err := f.source.GetBlocks(ctx, next, to)
	if err != nil {
		return 0, true, f.fail(fmt.Errorf("failed to fetch blocks %d-%d: %w", next, to, err))
	}

	var parsed []*events.ParsedEvent
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			for _, l := range tx.Logs {
				ev, err := f.parser.ParseLog(l, tx, block)
				if err != nil {
					f.countError(err)
					f.log.Debugw("failed to parse log", "block", block.Number, "log_index", l.Index, "error", err)
					continue
				}
				if ev != nil {
					parsed = append(parsed, ev)
				}
			}
		}
	}

	indexed := 0
	if len(parsed) > 0 {
		// the cursor stays put on failure so the same range is retried
		indexed, err = f.sink.StoreEvents(ctx, parsed)
		if err != nil {
			return indexed, true, f.fail(fmt.Errorf("failed to index blocks %d-%d: %w", next, to, err))
		}
	}

	updated := Cursor{LastBlock: to, UpdatedAt: f.now()}
	if cursor != nil {
		updated.EventsIndexed = cursor.EventsIndexed
	}
	updated.EventsIndexed += indexed
	if len(blocks) > 0 && blocks[len(blocks)-1].Number == to {
		updated.LastBlockHash = blocks[len(blocks)-1].Hash
	}

	f.mu.Lock()
	f.cursor = &updated
	f.lastErr = ""
	f.mu.Unlock()

	if err := f.cursors.Save(ctx, updated); err != nil {
		f.log.Warnw("failed to save follower position", "block", to, "error", err)
	}

	metrics.LastIngestedBlockSet(sourceLive, to)
	metrics.BlocksIngestedAdd(sourceLive, to-next+1)
	metrics.EventsIngestedAdd(sourceLive, indexed)
	metrics.IngestDurationLog(sourceLive, f.now().Sub(start))

	f.log.Infow("live blocks ingested",
		"from_block", next,
		"to_block", to,
		"head", head,
		"events", indexed,
	)

	return indexed, to == safe, nil
}

func (f *Follower) loadCursor(ctx context.Context) (*Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		c, err := f.cursors.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load follower position: %w", err)
		}
		f.cursor, f.loaded = c, true
		if c != nil {
			f.log.Infow("live follower resuming", "last_block", c.LastBlock)
		}
	}

	if f.cursor == nil {
		return nil, nil
	}
	c := *f.cursor
	return &c, nil
}

func (f *Follower) fail(err error) error {
	if !errors.Is(err, context.Canceled) {
		f.countError(err)
	}
	return err
}

func (f *Follower) countError(err error) {
	metrics.ErrorsInc(common.ComponentLiveFollower, "warn")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors++
	f.lastErr = err.Error()
}

func (f *Follower) setRunning(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = v
}

// Status returns a snapshot of the follower.
func (f *Follower) Status() FollowerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := FollowerStatus{
		Running:   f.running,
		Head:      f.head,
		Errors:    f.errors,
		LastError: f.lastErr,
	}
	if f.cursor != nil {
		last := f.cursor.LastBlock
		s.LastBlock = &last
		s.EventsIndexed = f.cursor.EventsIndexed
	}
	if f.polled != nil {
		t := *f.polled
		s.LastPoll = &t
	}
	return s
}
