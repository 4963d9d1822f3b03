// Package manager wires live ingestion and historical replay into one event indexer
// and exposes the combined query and control surface.
package manager

import (
	"context"
	"errors"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/metrics"
	"github.com/goran-ethernal/ChainReplay/internal/notify"
	"github.com/goran-ethernal/ChainReplay/internal/replay"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
	"golang.org/x/sync/errgroup"
)

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithFollower enables live ingestion.
func WithFollower(f *Follower) Option {
	return func(m *Manager) { m.follower = f }
}

// WithRetention runs the retention worker for the lifetime of Run.
func WithRetention(w *eventindex.RetentionWorker) Option {
	return func(m *Manager) { m.retention = w }
}

// WithHeadCheck sets the data source used by Health.
func WithHeadCheck(source events.DataSource) Option {
	return func(m *Manager) { m.source = source }
}

// Overview summarizes the state of every component.
type Overview struct {
	Events    int              `json:"events"`
	Terms     int              `json:"terms"`
	Replay    pkgreplay.Status `json:"replay"`
	Live      *FollowerStatus  `json:"live,omitempty"`
	StartedAt time.Time        `json:"startedAt"`
	Uptime    string           `json:"uptime"`
}

// Manager owns the indexer, the replay engine and the background workers feeding them.
type Manager struct {
	indexer   *eventindex.Indexer
	engine    *replay.Engine
	notifier  *notify.Notifier
	follower  *Follower
	retention *eventindex.RetentionWorker
	source    events.DataSource
	log       *logger.Logger
	startedAt time.Time
}

// New creates a manager. notifier may be nil.
func New(
	indexer *eventindex.Indexer,
	engine *replay.Engine,
	notifier *notify.Notifier,
	log *logger.Logger,
	opts ...Option,
) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	m := &Manager{
		indexer:   indexer,
		engine:    engine,
		notifier:  notifier,
		log:       log,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run starts the retention worker and the live follower and blocks until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	if m.retention != nil {
		m.retention.Start(ctx)
		defer m.retention.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.follower != nil {
		g.Go(func() error {
			return m.follower.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	m.log.Infow("index manager running", "live", m.follower != nil, "retention", m.retention != nil)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	m.log.Info("index manager stopped")

	return err
}

// Close stops an active replay and releases the replay checkpoints.
func (m *Manager) Close() error {
	return m.engine.Close()
}

func (m *Manager) Indexer() *eventindex.Indexer {
	return m.indexer
}

func (m *Manager) Replay() *replay.Engine {
	return m.engine
}

// Subscribe registers fn on the shared notifier; it is a no-op without one.
func (m *Manager) Subscribe(fn notify.Handler, topics ...events.Topic) func() {
	if m.notifier == nil {
		return func() {}
	}
	return m.notifier.Subscribe(fn, topics...)
}

// Overview returns a snapshot across the indexer, the replay engine and the follower.
func (m *Manager) Overview() Overview {
	o := Overview{
		Events:    m.indexer.Count(),
		Terms:     m.indexer.TermCount(),
		Replay:    m.engine.Status(),
		StartedAt: m.startedAt,
		Uptime:    time.Since(m.startedAt).Round(time.Second).String(),
	}
	if m.follower != nil {
		s := m.follower.Status()
		o.Live = &s
	}
	return o
}

// Health checks that the chain data source answers and the index is consistent.
func (m *Manager) Health(ctx context.Context) error {
	if m.source != nil {
		_, err := m.source.LatestBlockNumber(ctx)
		metrics.ComponentHealthSet(common.ComponentRPC, err == nil)
		if err != nil {
			return err
		}
	}

	err := m.indexer.CheckConsistency()
	metrics.ComponentHealthSet(common.ComponentEventIndexer, err == nil)
	return err
}
