// Package replay re-derives the event set of a historical block range and feeds it to the event indexer.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

const (
	defaultAverageBlockTime       = 12 * time.Second
	defaultMaxConsecutiveFailures = 3
	defaultHistorySize            = 10
)

// Indexer is the part of the event indexer the engine writes to.
type Indexer interface {
	HasEvent(id string) bool
	StoreEvents(ctx context.Context, evs []*events.ParsedEvent) (int, error)
}

// Config tunes the engine. Zero values select defaults.
type Config struct {
	// AverageBlockTime translates time bounds into block numbers.
	AverageBlockTime time.Duration
	// MaxConsecutiveFailures fails a session after this many batches in a row without a fetched block.
	MaxConsecutiveFailures int
	// HistorySize is how many finished sessions are kept.
	HistorySize int
	// Defaults is the session config callers start from.
	Defaults pkgreplay.Config
}

func (c *Config) applyDefaults() {
	if c.AverageBlockTime <= 0 {
		c.AverageBlockTime = defaultAverageBlockTime
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaultHistorySize
	}
	if c.Defaults.BatchSize == 0 {
		c.Defaults.BatchSize = pkgreplay.DefaultBatchSize
	}
}

// Engine runs one replay session at a time.
type Engine struct {
	cfg         Config
	source      events.DataSource
	parser      events.Parser
	indexer     Indexer
	checkpoints CheckpointStore
	pub         events.Publisher
	log         *logger.Logger

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	current *run
	history []*pkgreplay.Session
}

// run is the mutable state of one session. session, resume and stopPublished are guarded by Engine.mu.
type run struct {
	session pkgreplay.Session
	filter  logFilter
	from    uint64
	to      uint64

	stop          chan struct{}
	resume        chan struct{}
	done          chan struct{}
	stopPublished bool
	resolved      bool

	batches int
	busy    time.Duration
}

// New creates an engine. checkpoints and pub may be nil.
func New(
	cfg Config,
	source events.DataSource,
	parser events.Parser,
	indexer Indexer,
	checkpoints CheckpointStore,
	pub events.Publisher,
	log *logger.Logger,
) *Engine {
	cfg.applyDefaults()
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Engine{
		cfg:         cfg,
		source:      source,
		parser:      parser,
		indexer:     indexer,
		checkpoints: checkpoints,
		pub:         pub,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// DefaultConfig returns the configured session defaults.
func (e *Engine) DefaultConfig() pkgreplay.Config {
	return cloneConfig(e.cfg.Defaults)
}

// Start validates cfg and runs the session in the background.
// It returns a *pkgreplay.ValidationError for invalid configs and ErrReplayRunning while a session is active.
// A block range that cannot be resolved fails the session and is returned as the error.
func (e *Engine) Start(ctx context.Context, cfg pkgreplay.Config) (*pkgreplay.Session, error) {
	return e.start(ctx, cfg, "")
}

// ResumeFromCheckpoint restarts the most recent session from its next block,
// if that session did not complete.
func (e *Engine) ResumeFromCheckpoint(ctx context.Context) (*pkgreplay.Session, error) {
	cfg, from, err := e.resumeConfig(ctx)
	if err != nil {
		return nil, err
	}
	return e.start(ctx, cfg, from)
}

// Run is Start followed by waiting for the session to finish.
// Cancelling ctx stops the session between batches.
func (e *Engine) Run(ctx context.Context, cfg pkgreplay.Config) (*pkgreplay.Session, error) {
	r, err := e.begin(ctx, cfg, "")
	if err != nil {
		return e.sessionOf(r), err
	}

	e.loop(ctx, r)

	s := e.sessionOf(r)
	if s.Status == pkgreplay.StatusFailed {
		return s, errors.New(s.Error)
	}
	return s, nil
}

func (e *Engine) start(ctx context.Context, cfg pkgreplay.Config, resumedFrom string) (*pkgreplay.Session, error) {
	r, err := e.begin(ctx, cfg, resumedFrom)
	if err != nil {
		return e.sessionOf(r), err
	}

	go e.loop(context.WithoutCancel(ctx), r)

	return e.sessionOf(r), nil
}

func (e *Engine) resumeConfig(ctx context.Context) (pkgreplay.Config, string, error) {
	if e.checkpoints == nil {
		return pkgreplay.Config{}, "", pkgreplay.ErrNothingToResume
	}

	cp, err := e.checkpoints.Latest(ctx)
	if err != nil {
		return pkgreplay.Config{}, "", err
	}
	if cp == nil || !cp.Resumable() {
		return pkgreplay.Config{}, "", pkgreplay.ErrNothingToResume
	}

	cfg := cloneConfig(cp.Config)
	from, to := int64(cp.NextBlock), int64(cp.ToBlock) //nolint:gosec
	cfg.FromBlock, cfg.ToBlock = &from, &to
	cfg.FromTime, cfg.ToTime = nil, nil

	e.log.Infow("resuming replay from checkpoint",
		"session", cp.SessionID,
		"next_block", cp.NextBlock,
		"to_block", cp.ToBlock,
	)

	return cfg, cp.SessionID, nil
}

// begin validates cfg, claims the engine and resolves the block range.
// On error the returned run, if any, has already finished.
func (e *Engine) begin(ctx context.Context, cfg pkgreplay.Config, resumedFrom string) (*run, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &pkgreplay.ValidationError{Errors: errs}
	}

	r, err := e.claim(ctx, cfg, resumedFrom)
	if err != nil {
		return nil, err
	}

	from, to, err := e.resolveRange(ctx, cfg)
	if err != nil {
		err = fmt.Errorf("failed to resolve block range: %w", err)
		e.finish(ctx, r, pkgreplay.StatusFailed, err)
		close(r.done)
		return r, err
	}

	e.mu.Lock()
	r.from, r.to, r.resolved = from, to, true
	r.session.Progress = pkgreplay.Progress{
		CurrentBlock: from,
		FromBlock:    from,
		ToBlock:      to,
		TotalBlocks:  to - from + 1,
		StartTime:    r.session.StartedAt,
	}
	upd := e.updateLocked(r, true, false)
	e.mu.Unlock()

	e.log.Infow("replay started",
		"session", r.session.ID,
		"from_block", from,
		"to_block", to,
		"batch_size", cfg.BatchSize,
		"delay", cfg.Delay,
		"skip_existing", cfg.SkipExisting,
		"resumed_from", resumedFrom,
	)

	e.saveCheckpoint(ctx, r)
	progressLog(0)
	e.publish(events.TopicReplayStarted, upd)

	return r, nil
}

// claim registers a new running session. A stopped session whose last batch is
// still in flight is waited for; an active one is rejected.
func (e *Engine) claim(ctx context.Context, cfg pkgreplay.Config, resumedFrom string) (*run, error) {
	e.mu.Lock()
	for e.current != nil && !isClosed(e.current.done) {
		prev := e.current
		if prev.session.Status.Active() {
			e.mu.Unlock()
			return nil, pkgreplay.ErrReplayRunning
		}

		e.mu.Unlock()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	r := &run{
		session: pkgreplay.Session{
			ID:          e.newID(),
			Status:      pkgreplay.StatusRunning,
			Config:      cloneConfig(cfg),
			Statistics:  pkgreplay.Statistics{EventsByType: map[string]int{}},
			StartedAt:   e.now(),
			ResumedFrom: resumedFrom,
		},
		filter: newLogFilter(cfg),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.current = r

	return r, nil
}

// Stop ends the active session. A batch already in flight finishes; no further batch starts.
func (e *Engine) Stop() error {
	e.mu.Lock()
	r := e.current
	if r == nil || !r.session.Status.Active() {
		e.mu.Unlock()
		return pkgreplay.ErrNoActiveReplay
	}

	now := e.now()
	r.session.Status = pkgreplay.StatusStopped
	r.session.FinishedAt = &now
	close(r.stop)
	if r.resume != nil {
		close(r.resume)
		r.resume = nil
	}
	r.stopPublished = true
	upd := e.updateLocked(r, false, false)
	e.mu.Unlock()

	e.log.Infow("replay stop requested", "session", r.session.ID)
	e.publish(events.TopicReplayStopped, upd)

	return nil
}

// Pause holds the session before its next batch. Pausing a paused session is a no-op.
func (e *Engine) Pause() error {
	e.mu.Lock()
	r := e.current
	if r == nil || !r.session.Status.Active() {
		e.mu.Unlock()
		return pkgreplay.ErrNoActiveReplay
	}
	if r.session.Status == pkgreplay.StatusPaused {
		e.mu.Unlock()
		return nil
	}

	r.session.Status = pkgreplay.StatusPaused
	r.resume = make(chan struct{})
	upd := e.updateLocked(r, false, false)
	e.mu.Unlock()

	e.log.Infow("replay paused", "session", r.session.ID)
	e.publish(events.TopicReplayPaused, upd)

	return nil
}

// Resume continues a paused session. Resuming a running session is a no-op.
func (e *Engine) Resume() error {
	e.mu.Lock()
	r := e.current
	if r == nil || !r.session.Status.Active() {
		e.mu.Unlock()
		return pkgreplay.ErrNoActiveReplay
	}
	if r.session.Status == pkgreplay.StatusRunning {
		e.mu.Unlock()
		return nil
	}

	r.session.Status = pkgreplay.StatusRunning
	close(r.resume)
	r.resume = nil
	upd := e.updateLocked(r, false, false)
	e.mu.Unlock()

	e.log.Infow("replay resumed", "session", r.session.ID)
	e.publish(events.TopicReplayResumed, upd)

	return nil
}

// Wait blocks until the current session finishes or ctx ends, and returns its final state.
func (e *Engine) Wait(ctx context.Context) (*pkgreplay.Session, error) {
	e.mu.Lock()
	r := e.current
	e.mu.Unlock()
	if r == nil {
		return nil, pkgreplay.ErrNoActiveReplay
	}

	select {
	case <-r.done:
		return e.sessionOf(r), nil
	case <-ctx.Done():
		return e.sessionOf(r), ctx.Err()
	}
}

// Close stops the active session, waits for it and closes the checkpoint store.
func (e *Engine) Close() error {
	if err := e.Stop(); err != nil && !errors.Is(err, pkgreplay.ErrNoActiveReplay) {
		return err
	}

	e.mu.Lock()
	r := e.current
	e.mu.Unlock()
	if r != nil {
		<-r.done
	}

	if e.checkpoints != nil {
		return e.checkpoints.Close()
	}
	return nil
}

// Status returns the status of the latest session, or idle if none ever ran.
func (e *Engine) Status() pkgreplay.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return pkgreplay.StatusIdle
	}
	return e.current.session.Status
}

// Current returns the latest session, or nil if none ever ran.
func (e *Engine) Current() *pkgreplay.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	return cloneSession(&e.current.session)
}

// Progress returns the latest progress snapshot, or nil if no session ever ran.
func (e *Engine) Progress() *pkgreplay.Progress {
	s := e.Current()
	if s == nil {
		return nil
	}
	return &s.Progress
}

// Statistics returns the latest statistics snapshot, or nil if no session ever ran.
func (e *Engine) Statistics() *pkgreplay.Statistics {
	s := e.Current()
	if s == nil {
		return nil
	}
	return &s.Statistics
}

// Session looks a session up by id among the current one and the history.
func (e *Engine) Session(id string) (*pkgreplay.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && e.current.session.ID == id {
		return cloneSession(&e.current.session), nil
	}
	for _, s := range e.history {
		if s.ID == id {
			return cloneSession(s), nil
		}
	}
	return nil, pkgreplay.ErrSessionNotFound
}

// History returns finished sessions, newest first.
func (e *Engine) History() []pkgreplay.Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]pkgreplay.Session, 0, len(e.history))
	for i := len(e.history) - 1; i >= 0; i-- {
		out = append(out, *cloneSession(e.history[i]))
	}
	return out
}

// loop processes batches in ascending block order until the range is done,
// the session is stopped or fails, or ctx ends.
func (e *Engine) loop(ctx context.Context, r *run) {
	defer close(r.done)

	cfg := r.session.Config
	size := uint64(cfg.BatchSize) //nolint:gosec
	failures := 0

	for start := r.from; ; {
		if !e.waitRunnable(ctx, r) {
			break
		}

		end := r.to
		if r.to-start >= size {
			end = start + size - 1
		}

		res, byType, outcome := e.processBatch(ctx, r, start, end)
		if outcome == batchAborted {
			break
		}

		e.recordBatch(r, res, byType)
		e.saveCheckpoint(ctx, r)

		if outcome == batchFetchFailed {
			failures++
			if failures >= e.cfg.MaxConsecutiveFailures {
				e.finish(ctx, r, pkgreplay.StatusFailed,
					fmt.Errorf("%d consecutive batches failed to fetch, last range %d-%d", failures, start, end))
				return
			}
		} else {
			failures = 0
		}

		if end == r.to {
			e.finish(ctx, r, pkgreplay.StatusCompleted, nil)
			return
		}
		start = end + 1

		if !e.sleep(ctx, r, cfg.Delay) {
			break
		}
	}

	e.finish(ctx, r, pkgreplay.StatusStopped, ctx.Err())
}

// waitRunnable blocks while the session is paused and reports whether the next batch may start.
func (e *Engine) waitRunnable(ctx context.Context, r *run) bool {
	for {
		if ctx.Err() != nil {
			return false
		}

		e.mu.Lock()
		status, resume := r.session.Status, r.resume
		e.mu.Unlock()

		switch status {
		case pkgreplay.StatusRunning:
			return true
		case pkgreplay.StatusPaused:
			select {
			case <-resume:
			case <-r.stop:
				return false
			case <-ctx.Done():
				return false
			}
		default:
			return false
		}
	}
}

// sleep waits d between batches; it returns false if the session was stopped meanwhile.
func (e *Engine) sleep(ctx context.Context, r *run, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-r.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// finish moves the session to a terminal status. A session already stopped keeps that status.
func (e *Engine) finish(ctx context.Context, r *run, status pkgreplay.Status, cause error) {
	e.mu.Lock()
	s := &r.session
	if s.Status.Active() {
		now := e.now()
		s.Status = status
		s.FinishedAt = &now
	}
	if cause != nil && s.Status == pkgreplay.StatusFailed {
		s.Error = cause.Error()
	}
	refreshRates(s, *s.FinishedAt)

	e.history = append(e.history, cloneSession(s))
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[len(e.history)-e.cfg.HistorySize:]
	}

	publishStop := s.Status == pkgreplay.StatusStopped && !r.stopPublished
	r.stopPublished = true
	upd := e.updateLocked(r, false, false)
	final := s.Status
	e.mu.Unlock()

	e.saveCheckpoint(ctx, r)
	sessionFinishedInc(string(final))

	switch final {
	case pkgreplay.StatusCompleted:
		e.log.Infow("replay completed",
			"session", upd.SessionID,
			"blocks", upd.Statistics.BlocksProcessed,
			"events", upd.Statistics.EventsProcessed,
			"skipped", upd.Statistics.EventsSkipped,
			"errors", upd.Statistics.ErrorCount,
			"duration", upd.Statistics.Duration,
		)
		e.publish(events.TopicReplayCompleted, upd)
	case pkgreplay.StatusFailed:
		e.log.Errorw("replay failed", "session", upd.SessionID, "error", upd.Error)
		e.publish(events.TopicReplayError, upd)
	case pkgreplay.StatusStopped:
		e.log.Infow("replay stopped", "session", upd.SessionID, "current_block", upd.Progress.CurrentBlock)
		if publishStop {
			e.publish(events.TopicReplayStopped, upd)
		}
	}
}

// recordBatch folds a batch result into the session statistics and progress.
func (e *Engine) recordBatch(r *run, res pkgreplay.BatchResult, byType map[string]int) {
	e.mu.Lock()
	now := e.now()
	s := &r.session

	blocks := res.ToBlock - res.FromBlock + 1
	st := &s.Statistics
	st.BlocksProcessed += blocks
	st.TotalEventsFound += res.EventsFound
	st.EventsProcessed += res.EventsIndexed
	st.EventsSkipped += res.EventsSkipped
	st.ErrorCount += res.Errors
	for name, n := range byType {
		st.EventsByType[name] += n
	}

	r.batches++
	r.busy += res.Duration
	advanceProgress(&s.Progress, res.ToBlock, uint64(s.Config.BatchSize), s.Config.Delay, //nolint:gosec
		r.busy/time.Duration(r.batches), now)
	refreshRates(s, now)

	batch := res
	s.LastBatch = &batch
	upd := e.updateLocked(r, false, true)
	e.mu.Unlock()

	batchLog(blocks, res.EventsIndexed, res.EventsSkipped, res.Duration)
	progressLog(upd.Progress.Percentage)

	e.log.Debugw("replay batch processed",
		"session", upd.SessionID,
		"from_block", res.FromBlock,
		"to_block", res.ToBlock,
		"blocks_fetched", res.BlocksFetched,
		"events_found", res.EventsFound,
		"events_indexed", res.EventsIndexed,
		"events_skipped", res.EventsSkipped,
		"errors", res.Errors,
		"fetch_attempts", res.FetchAttempts,
		"percentage", upd.Progress.Percentage,
	)

	e.publish(events.TopicReplayProgress, upd)
}

func (e *Engine) saveCheckpoint(ctx context.Context, r *run) {
	if e.checkpoints == nil {
		return
	}

	e.mu.Lock()
	if !r.resolved {
		e.mu.Unlock()
		return
	}
	s := &r.session
	cp := Checkpoint{
		SessionID:     s.ID,
		Config:        cloneConfig(s.Config),
		FromBlock:     s.Progress.FromBlock,
		ToBlock:       s.Progress.ToBlock,
		NextBlock:     s.Progress.CurrentBlock,
		Status:        s.Status,
		Error:         s.Error,
		EventsIndexed: s.Statistics.EventsProcessed,
		CreatedAt:     s.StartedAt,
		UpdatedAt:     e.now(),
	}
	e.mu.Unlock()

	if err := e.checkpoints.Save(context.WithoutCancel(ctx), cp); err != nil {
		e.log.Warnw("failed to save replay checkpoint", "session", cp.SessionID, "error", err)
	}
}

// updateLocked builds a notification payload from the session. Callers hold e.mu.
func (e *Engine) updateLocked(r *run, withConfig, withBatch bool) pkgreplay.Update {
	s := cloneSession(&r.session)
	upd := pkgreplay.Update{
		SessionID:  s.ID,
		Status:     s.Status,
		Progress:   &s.Progress,
		Statistics: &s.Statistics,
		Error:      s.Error,
	}
	if withConfig {
		upd.Config = &s.Config
	}
	if withBatch {
		upd.Batch = s.LastBatch
	}
	return upd
}

func (e *Engine) publish(topic events.Topic, payload any) {
	if e.pub != nil {
		e.pub.Publish(topic, payload)
	}
}

func (e *Engine) sessionOf(r *run) *pkgreplay.Session {
	if r == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(&r.session)
}

// logFilter is the compiled allow-list of a session.
type logFilter struct {
	addresses map[common.Address]struct{}
	names     map[string]struct{}
}

func newLogFilter(cfg pkgreplay.Config) logFilter {
	var f logFilter
	if len(cfg.Addresses) > 0 {
		f.addresses = make(map[common.Address]struct{}, len(cfg.Addresses))
		for _, a := range cfg.Addresses {
			f.addresses[common.HexToAddress(strings.TrimSpace(a))] = struct{}{}
		}
	}
	if len(cfg.EventNames) > 0 {
		f.names = make(map[string]struct{}, len(cfg.EventNames))
		for _, n := range cfg.EventNames {
			f.names[n] = struct{}{}
		}
	}
	return f
}

func (f logFilter) allowsAddress(a common.Address) bool {
	if f.addresses == nil {
		return true
	}
	_, ok := f.addresses[a]
	return ok
}

func (f logFilter) allowsName(name string) bool {
	if f.names == nil {
		return true
	}
	_, ok := f.names[name]
	return ok
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
