package eventindex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// ClearOldEvents removes every event with a timestamp strictly before cutoff and returns how many were removed.
func (i *Indexer) ClearOldEvents(ctx context.Context, cutoff time.Time) (int, error) {
	i.mu.Lock()

	var ids []string
	for id, e := range i.entries {
		if e.ev.Timestamp.Before(cutoff) {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		i.mu.Unlock()
		return 0, nil
	}

	if i.storage != nil {
		if err := i.storage.Delete(ctx, ids...); err != nil {
			i.mu.Unlock()
			storageErrorsInc("delete")
			return 0, fmt.Errorf("failed to delete events from storage: %w", err)
		}
	}

	for _, id := range ids {
		i.remove(id)
	}
	size, terms := len(i.entries), len(i.terms)
	i.mu.Unlock()

	eventsRemovedAdd(len(ids))
	indexSizeLog(size, terms)
	i.log.Infow("cleared old events", "removed", len(ids), "cutoff", cutoff)
	i.publish(events.TopicRemoved, Removed{Count: len(ids), Cutoff: cutoff})

	return len(ids), nil
}

// RebuildSearchIndex recomputes every event's terms and the whole inverted index from the primary store.
func (i *Indexer) RebuildSearchIndex() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.terms = make(map[string]map[string]struct{}, len(i.terms))
	for _, e := range i.entries {
		e.ev.SearchTerms = searchTerms(e.ev)
		i.index(e.ev)
	}

	indexRebuildsInc()
	indexSizeLog(len(i.entries), len(i.terms))
	i.log.Infow("search index rebuilt", "events", len(i.entries), "terms", len(i.terms))

	return len(i.terms)
}

// Compactor reclaims storage space after deletes.
type Compactor interface {
	Compact(ctx context.Context) error
}

// RetentionWorker periodically removes events older than the retention window.
type RetentionWorker struct {
	indexer   *Indexer
	retention time.Duration
	interval  time.Duration
	compactor Compactor
	log       *logger.Logger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetentionWorker creates a worker; compactor may be nil.
func NewRetentionWorker(
	indexer *Indexer, retention, interval time.Duration, compactor Compactor, log *logger.Logger,
) *RetentionWorker {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &RetentionWorker{
		indexer:   indexer,
		retention: retention,
		interval:  interval,
		compactor: compactor,
		log:       log,
		now:       time.Now,
	}
}

// Start launches the background loop. It is a no-op when retention is disabled.
func (w *RetentionWorker) Start(ctx context.Context) {
	if w.retention <= 0 || w.interval <= 0 {
		w.log.Info("event retention disabled")
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Infow("event retention started", "retention", w.retention, "interval", w.interval)
}

// Stop cancels the loop and waits for it to exit.
func (w *RetentionWorker) Stop() {
	if w.cancel == nil {
		return
	}

	w.cancel()
	w.wg.Wait()
	w.cancel = nil
	w.log.Info("event retention stopped")
}

func (w *RetentionWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Warnf("retention run failed: %v", err)
			}
		}
	}
}

// RunOnce removes expired events and compacts storage when anything was removed.
func (w *RetentionWorker) RunOnce(ctx context.Context) (int, error) {
	removed, err := w.indexer.ClearOldEvents(ctx, w.now().Add(-w.retention))
	if err != nil {
		return 0, err
	}

	if removed > 0 && w.compactor != nil {
		if err := w.compactor.Compact(ctx); err != nil {
			w.log.Warnf("storage compaction failed: %v", err)
		}
	}

	return removed, nil
}
