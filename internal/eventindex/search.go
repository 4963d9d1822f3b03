package eventindex

import (
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// matcher is a compiled filter.
type matcher struct {
	f      events.Filter
	topics []common.Hash
	tokens []string
}

func compile(f events.Filter) *matcher {
	m := &matcher{f: f, tokens: tokenize(f.Query)}
	for _, t := range f.Topics {
		m.topics = append(m.topics, common.HexToHash(t))
	}
	return m
}

func (m *matcher) match(ev *events.IndexedEvent) bool {
	f := m.f

	if f.EventName != "" && ev.EventName != f.EventName {
		return false
	}
	if f.ChainID != "" && ev.ChainID != f.ChainID {
		return false
	}
	if f.Address != "" && !strings.EqualFold(ev.Address.Hex(), strings.TrimSpace(f.Address)) {
		return false
	}
	if f.FromBlock != nil && ev.BlockNumber < *f.FromBlock {
		return false
	}
	if f.ToBlock != nil && ev.BlockNumber > *f.ToBlock {
		return false
	}
	if f.FromTime != nil && ev.Timestamp.Before(*f.FromTime) {
		return false
	}
	if f.ToTime != nil && ev.Timestamp.After(*f.ToTime) {
		return false
	}
	for _, want := range m.topics {
		found := false
		for _, have := range ev.Topics {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(m.tokens) > 0 && !matchesQuery(ev.SearchTerms, m.tokens) {
		return false
	}

	return true
}

// Search applies every predicate of the filter, sorts and paginates.
// Ties on the sort key are broken by event id.
func (i *Indexer) Search(f events.Filter) events.SearchResult {
	start := time.Now()
	defer func() { searchDurationLog(time.Since(start)) }()

	m := compile(f)

	i.mu.RLock()
	matched := make([]*events.IndexedEvent, 0)
	for _, e := range i.entries {
		if m.match(e.ev) {
			matched = append(matched, e.ev)
		}
	}

	sortEvents(matched, f.SortBy, f.SortOrder)

	total := len(matched)
	offset := max(f.Offset, 0)
	limit := f.Limit
	if limit <= 0 {
		limit = i.defaultLimit
	}

	page := make([]*events.IndexedEvent, 0, min(limit, max(total-offset, 0)))
	for n := offset; n < total && n < offset+limit; n++ {
		page = append(page, matched[n].Clone())
	}
	i.mu.RUnlock()

	return events.SearchResult{
		Events:  page,
		Total:   total,
		HasMore: offset+limit < total,
	}
}

func sortEvents(evs []*events.IndexedEvent, by events.SortField, order events.SortOrder) {
	if by == "" {
		by = events.SortByTimestamp
	}
	desc := order != events.SortAsc

	cmp := func(a, b *events.IndexedEvent) int {
		switch by {
		case events.SortByBlockNumber:
			switch {
			case a.BlockNumber < b.BlockNumber:
				return -1
			case a.BlockNumber > b.BlockNumber:
				return 1
			}
		case events.SortByEventName:
			if c := strings.Compare(a.EventName, b.EventName); c != 0 {
				return c
			}
		default:
			if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
				return c
			}
		}
		return 0
	}

	sort.SliceStable(evs, func(x, y int) bool {
		c := cmp(evs[x], evs[y])
		if c == 0 {
			return evs[x].ID < evs[y].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// collect returns copies of matching events in the given order, capped at limit when positive.
func (i *Indexer) collect(
	pred func(*events.IndexedEvent) bool, by events.SortField, order events.SortOrder, limit int,
) []*events.IndexedEvent {
	i.mu.RLock()
	defer i.mu.RUnlock()

	matched := make([]*events.IndexedEvent, 0)
	for _, e := range i.entries {
		if pred(e.ev) {
			matched = append(matched, e.ev)
		}
	}

	sortEvents(matched, by, order)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*events.IndexedEvent, len(matched))
	for n, ev := range matched {
		out[n] = ev.Clone()
	}
	return out
}

// EventsByTransaction returns the events of a transaction ordered by log index.
func (i *Indexer) EventsByTransaction(txHash string) []*events.IndexedEvent {
	want := strings.TrimSpace(txHash)
	out := i.collect(func(ev *events.IndexedEvent) bool {
		return strings.EqualFold(ev.TransactionHash.Hex(), want)
	}, events.SortByTimestamp, events.SortAsc, 0)

	sort.SliceStable(out, func(a, b int) bool { return out[a].LogIndex < out[b].LogIndex })
	return out
}

// EventsByAddress returns events emitted by a contract, newest first.
func (i *Indexer) EventsByAddress(address string, limit int) []*events.IndexedEvent {
	want := strings.TrimSpace(address)
	return i.collect(func(ev *events.IndexedEvent) bool {
		return strings.EqualFold(ev.Address.Hex(), want)
	}, events.SortByTimestamp, events.SortDesc, limit)
}

// EventsByName returns events with the exact name, newest first.
func (i *Indexer) EventsByName(name string, limit int) []*events.IndexedEvent {
	return i.collect(func(ev *events.IndexedEvent) bool {
		return ev.EventName == name
	}, events.SortByTimestamp, events.SortDesc, limit)
}

// EventsByBlockRange returns events with from <= block <= to in block order.
func (i *Indexer) EventsByBlockRange(from, to uint64) []*events.IndexedEvent {
	return i.collect(func(ev *events.IndexedEvent) bool {
		return ev.BlockNumber >= from && ev.BlockNumber <= to
	}, events.SortByBlockNumber, events.SortAsc, 0)
}

// EventsByTimeRange returns events with from <= timestamp <= to, oldest first.
func (i *Indexer) EventsByTimeRange(from, to time.Time) []*events.IndexedEvent {
	return i.collect(func(ev *events.IndexedEvent) bool {
		return !ev.Timestamp.Before(from) && !ev.Timestamp.After(to)
	}, events.SortByTimestamp, events.SortAsc, 0)
}
