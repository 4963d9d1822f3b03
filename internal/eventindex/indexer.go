// Package eventindex owns the authoritative in-memory event store and its inverted search index.
package eventindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// BatchIndexed is the payload of a batch-indexed notification.
type BatchIndexed struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Removed is the payload of a removed notification.
type Removed struct {
	Count  int       `json:"count"`
	Cutoff time.Time `json:"cutoff"`
}

type entry struct {
	ev  *events.IndexedEvent
	seq uint64 // insertion order
}

// Config holds indexer settings.
type Config struct {
	// DefaultPageLimit is used by searches without a limit.
	DefaultPageLimit int
}

// Indexer is the single source of truth for observed events.
// One lock covers the primary store and the inverted index so that an overwrite removes the
// stale term set before the new one is installed.
type Indexer struct {
	mu      sync.RWMutex
	entries map[string]*entry
	terms   map[string]map[string]struct{} // term -> event ids
	seq     uint64
	lastAt  time.Time

	storage      events.Storage
	pub          events.Publisher
	log          *logger.Logger
	defaultLimit int
	now          func() time.Time
}

// New creates an indexer that writes through to storage and publishes to pub.
// A nil storage keeps events in memory only; a nil publisher drops notifications.
func New(cfg Config, storage events.Storage, pub events.Publisher, log *logger.Logger) *Indexer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	limit := cfg.DefaultPageLimit
	if limit <= 0 {
		limit = events.DefaultLimit
	}

	return &Indexer{
		entries:      make(map[string]*entry),
		terms:        make(map[string]map[string]struct{}),
		storage:      storage,
		pub:          pub,
		log:          log,
		defaultLimit: limit,
		now:          time.Now,
	}
}

func (i *Indexer) publish(topic events.Topic, payload any) {
	if i.pub != nil {
		i.pub.Publish(topic, payload)
	}
}

// Load populates the index from storage, re-deriving search terms as ingest would.
// Events keep their stored indexedAt; insertion order follows indexedAt then id.
func (i *Indexer) Load(ctx context.Context) (int, error) {
	if i.storage == nil {
		return 0, nil
	}

	var loaded []*events.IndexedEvent
	err := i.storage.Scan(ctx, func(ev *events.IndexedEvent) error {
		if ev.ID == "" {
			i.log.Warn("skipping stored event without id")
			return nil
		}
		loaded = append(loaded, ev)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load events from storage: %w", err)
	}

	sort.Slice(loaded, func(a, b int) bool {
		if !loaded[a].IndexedAt.Equal(loaded[b].IndexedAt) {
			return loaded[a].IndexedAt.Before(loaded[b].IndexedAt)
		}
		return loaded[a].ID < loaded[b].ID
	})

	i.mu.Lock()
	for _, ev := range loaded {
		ev.SearchTerms = searchTerms(ev)
		i.install(ev)
		if ev.IndexedAt.After(i.lastAt) {
			i.lastAt = ev.IndexedAt
		}
	}
	count := len(i.entries)
	i.mu.Unlock()

	indexSizeLog(count, i.TermCount())
	i.log.Infow("loaded events from storage", "events", len(loaded))

	return len(loaded), nil
}

// StoreEvent indexes one event, overwriting any event with the same id.
func (i *Indexer) StoreEvent(ctx context.Context, ev *events.ParsedEvent) (*events.IndexedEvent, error) {
	if ev == nil || ev.ID == "" {
		return nil, events.ErrEmptyEventID
	}

	i.mu.Lock()
	indexed, err := i.storeLocked(ctx, []*events.ParsedEvent{ev})
	i.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := indexed[0].Clone()
	i.publish(events.TopicIndexed, out)

	return out, nil
}

// StoreEvents indexes a batch. Events without an id are skipped and reported in the returned error;
// the rest are stored.
func (i *Indexer) StoreEvents(ctx context.Context, evs []*events.ParsedEvent) (int, error) {
	valid := make([]*events.ParsedEvent, 0, len(evs))
	var skipped int
	for _, ev := range evs {
		if ev == nil || ev.ID == "" {
			skipped++
			continue
		}
		valid = append(valid, ev)
	}

	var skipErr error
	if skipped > 0 {
		skipErr = fmt.Errorf("%d events skipped: %w", skipped, events.ErrEmptyEventID)
	}
	if len(valid) == 0 {
		return 0, skipErr
	}

	i.mu.Lock()
	indexed, err := i.storeLocked(ctx, valid)
	i.mu.Unlock()
	if err != nil {
		return 0, errors.Join(err, skipErr)
	}

	ids := make([]string, len(indexed))
	for n, ev := range indexed {
		ids[n] = ev.ID
		i.publish(events.TopicIndexed, ev.Clone())
	}
	i.publish(events.TopicBatchIndexed, BatchIndexed{Count: len(ids), IDs: ids})

	return len(indexed), skipErr
}

// storeLocked wraps, persists and installs events. Callers hold the write lock.
func (i *Indexer) storeLocked(ctx context.Context, evs []*events.ParsedEvent) ([]*events.IndexedEvent, error) {
	items := make([]*events.IndexedEvent, len(evs))
	for n, ev := range evs {
		items[n] = &events.IndexedEvent{ParsedEvent: *ev}
	}
	return i.installLocked(ctx, items, true)
}

// installLocked stamps indexedAt, derives terms, persists and installs items.
// With keepState the processing state of an already indexed event survives the overwrite,
// otherwise the item's own state is kept.
func (i *Indexer) installLocked(
	ctx context.Context, items []*events.IndexedEvent, keepState bool,
) ([]*events.IndexedEvent, error) {
	indexed, now := i.prepareLocked(items, keepState)

	if i.storage != nil {
		if err := i.storage.Put(ctx, indexed...); err != nil {
			storageErrorsInc("put")
			return nil, fmt.Errorf("failed to persist events: %w", err)
		}
	}

	i.commitLocked(indexed, now)
	return indexed, nil
}

// prepareLocked clones items and stamps them for installation without touching the index.
func (i *Indexer) prepareLocked(items []*events.IndexedEvent, keepState bool) ([]*events.IndexedEvent, time.Time) {
	now := i.now()
	if now.Before(i.lastAt) {
		now = i.lastAt
	}

	indexed := make([]*events.IndexedEvent, 0, len(items))
	for _, item := range items {
		ie := item.Clone()
		ie.IndexedAt = now
		normalize(ie, now)

		if prev, ok := i.entries[ie.ID]; ok && keepState {
			ie.Metadata = prev.ev.Metadata
			ie.ProcessedAt = prev.ev.ProcessedAt
		}

		ie.SearchTerms = searchTerms(ie)
		indexed = append(indexed, ie)
	}

	return indexed, now
}

// commitLocked installs already persisted events.
func (i *Indexer) commitLocked(indexed []*events.IndexedEvent, now time.Time) {
	for _, ie := range indexed {
		i.install(ie)
	}
	i.lastAt = now

	eventsIndexedAdd(len(indexed))
	indexSizeLog(len(i.entries), len(i.terms))
}

// normalize substitutes defaults for missing optional fields.
func normalize(ie *events.IndexedEvent, now time.Time) {
	if ie.Status == "" {
		ie.Status = events.StatusPending
	}
	if ie.Params == nil {
		ie.Params = map[string]any{}
	}
	if ie.Topics == nil {
		ie.Topics = []common.Hash{}
	}
	if ie.Timestamp.IsZero() {
		ie.Timestamp = now
	}
}

// install puts an event into the store and index, removing the terms of a previous version first.
func (i *Indexer) install(ev *events.IndexedEvent) {
	if prev, ok := i.entries[ev.ID]; ok {
		i.unindex(prev.ev)
		prev.ev = ev
		i.index(ev)
		return
	}

	i.seq++
	i.entries[ev.ID] = &entry{ev: ev, seq: i.seq}
	i.index(ev)
}

func (i *Indexer) index(ev *events.IndexedEvent) {
	for _, term := range ev.SearchTerms {
		ids, ok := i.terms[term]
		if !ok {
			ids = make(map[string]struct{})
			i.terms[term] = ids
		}
		ids[ev.ID] = struct{}{}
	}
}

func (i *Indexer) unindex(ev *events.IndexedEvent) {
	for _, term := range ev.SearchTerms {
		ids, ok := i.terms[term]
		if !ok {
			continue
		}
		delete(ids, ev.ID)
		if len(ids) == 0 {
			delete(i.terms, term)
		}
	}
}

// remove deletes an event from the store and index.
func (i *Indexer) remove(id string) {
	e, ok := i.entries[id]
	if !ok {
		return
	}
	i.unindex(e.ev)
	delete(i.entries, id)
}

// GetEvent returns a copy of the event with the given id.
func (i *Indexer) GetEvent(id string) (*events.IndexedEvent, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.entries[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}
	return e.ev.Clone(), nil
}

// HasEvent reports whether an event id is indexed.
func (i *Indexer) HasEvent(id string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, ok := i.entries[id]
	return ok
}

// MarkProcessed records that a downstream consumer handled the event.
func (i *Indexer) MarkProcessed(ctx context.Context, id string) (*events.IndexedEvent, error) {
	ev, err := i.mutate(ctx, id, func(ev *events.IndexedEvent) {
		t := i.now()
		ev.ProcessedAt = &t
		ev.Metadata.Processed = true
	})
	if err != nil {
		return nil, err
	}

	i.publish(events.TopicProcessed, ev)
	return ev, nil
}

// RecordRetry increments the retry counter of an event.
func (i *Indexer) RecordRetry(ctx context.Context, id string) (*events.IndexedEvent, error) {
	return i.mutate(ctx, id, func(ev *events.IndexedEvent) {
		ev.Metadata.RetryCount++
	})
}

// UpdateStatus sets the confirmation status and count of an event.
func (i *Indexer) UpdateStatus(
	ctx context.Context, id string, status events.Status, confirmations uint64,
) (*events.IndexedEvent, error) {
	return i.mutate(ctx, id, func(ev *events.IndexedEvent) {
		ev.Status = status
		ev.Confirmations = confirmations
	})
}

// mutate applies fn to a copy of the event, persists it and swaps it in.
// Mutations here never touch search terms.
func (i *Indexer) mutate(ctx context.Context, id string, fn func(*events.IndexedEvent)) (*events.IndexedEvent, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.entries[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}

	updated := e.ev.Clone()
	fn(updated)

	if i.storage != nil {
		if err := i.storage.Put(ctx, updated); err != nil {
			storageErrorsInc("put")
			return nil, fmt.Errorf("failed to persist event %s: %w", id, err)
		}
	}

	e.ev = updated
	return updated.Clone(), nil
}

// DefaultLimit is the page size applied to searches without a limit.
func (i *Indexer) DefaultLimit() int {
	return i.defaultLimit
}

// Count returns the number of indexed events.
func (i *Indexer) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return len(i.entries)
}

// TermCount returns the number of distinct terms in the inverted index.
func (i *Indexer) TermCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return len(i.terms)
}

// CheckConsistency verifies that every term of every event maps back to it and
// that the inverted index references no missing events.
func (i *Indexer) CheckConsistency() error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var errs []error
	for id, e := range i.entries {
		for _, term := range e.ev.SearchTerms {
			if _, ok := i.terms[term][id]; !ok {
				errs = append(errs, fmt.Errorf("term %q missing id %s", term, id))
			}
		}
	}
	for term, ids := range i.terms {
		if len(ids) == 0 {
			errs = append(errs, fmt.Errorf("term %q has no ids", term))
		}
		for id := range ids {
			e, ok := i.entries[id]
			if !ok {
				errs = append(errs, fmt.Errorf("term %q references missing id %s", term, id))
				continue
			}
			if !slices.Contains(e.ev.SearchTerms, term) {
				errs = append(errs, fmt.Errorf("term %q is stale for id %s", term, id))
			}
		}
	}

	return errors.Join(errs...)
}
