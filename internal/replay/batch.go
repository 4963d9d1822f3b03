package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

type batchOutcome int

const (
	batchOK batchOutcome = iota
	// batchFetchFailed means not a single block of the batch could be fetched.
	batchFetchFailed
	// batchAborted means the batch was interrupted and must not be recorded.
	batchAborted
)

// resolveRange turns the session bounds into block numbers. Block bounds win over
// time bounds; a missing upper bound is the chain head at the time of the call.
func (e *Engine) resolveRange(ctx context.Context, cfg pkgreplay.Config) (uint64, uint64, error) {
	var (
		head    uint64
		headErr error
		fetched bool
	)
	latest := func() (uint64, error) {
		if !fetched {
			head, headErr = e.source.LatestBlockNumber(ctx)
			fetched = true
		}
		return head, headErr
	}

	var from, to uint64
	switch {
	case cfg.FromBlock != nil:
		from = uint64(*cfg.FromBlock) //nolint:gosec
	case cfg.FromTime != nil:
		h, err := latest()
		if err != nil {
			return 0, 0, err
		}
		from = e.blockAt(h, *cfg.FromTime)
	}

	switch {
	case cfg.ToBlock != nil:
		to = uint64(*cfg.ToBlock) //nolint:gosec
	case cfg.ToTime != nil:
		h, err := latest()
		if err != nil {
			return 0, 0, err
		}
		to = e.blockAt(h, *cfg.ToTime)
	default:
		h, err := latest()
		if err != nil {
			return 0, 0, err
		}
		to = h
	}

	if from > to {
		return 0, 0, fmt.Errorf("empty block range %d-%d", from, to)
	}

	return from, to, nil
}

// blockAt estimates the block produced at t by stepping back from head at the average block time.
func (e *Engine) blockAt(head uint64, t time.Time) uint64 {
	now := e.now()
	if !t.Before(now) {
		return head
	}

	behind := uint64(now.Sub(t) / e.cfg.AverageBlockTime) //nolint:gosec
	if behind >= head {
		return 0
	}
	return head - behind
}

// processBatch fetches [from, to], filters and parses its logs and hands the events to the indexer.
// A failed range fetch falls back to fetching block by block.
func (e *Engine) processBatch(
	ctx context.Context,
	r *run,
	from, to uint64,
) (pkgreplay.BatchResult, map[string]int, batchOutcome) {
	start := e.now()
	res := pkgreplay.BatchResult{FromBlock: from, ToBlock: to, FetchAttempts: 1}
	outcome := batchOK

	blocks, err := e.source.GetBlocks(ctx, from, to)
	if err != nil {
		if ctx.Err() != nil {
			return res, nil, batchAborted
		}

		res.Errors++
		replayErrorInc("fetch")
		e.log.Warnw("batch fetch failed, falling back to single blocks",
			"session", r.session.ID,
			"from_block", from,
			"to_block", to,
			"error", err,
		)

		res.UsedBlockFetch = true
		var ok bool
		blocks, ok = e.fetchBlockByBlock(ctx, r, from, to, &res)
		switch {
		case !ok:
			return res, nil, batchAborted
		case blocks == nil:
			outcome = batchFetchFailed
		}
	}
	res.BlocksFetched = len(blocks)

	cfg := r.session.Config
	byType := make(map[string]int)
	var parsed []*events.ParsedEvent

	for _, block := range blocks {
		for _, tx := range block.Transactions {
			for _, l := range tx.Logs {
				if !r.filter.allowsAddress(l.Address) {
					continue
				}

				txHash := tx.Hash
				if txHash == (common.Hash{}) {
					txHash = l.TxHash
				}
				if cfg.SkipExisting && e.indexer.HasEvent(events.EventID(txHash, l.Index)) {
					res.EventsSkipped++
					continue
				}

				ev, err := e.parser.ParseLog(l, tx, block)
				if err != nil {
					res.Errors++
					replayErrorInc("parse")
					e.log.Debugw("failed to parse log",
						"session", r.session.ID,
						"block", block.Number,
						"tx", txHash.Hex(),
						"log_index", l.Index,
						"error", err,
					)
					continue
				}
				if ev == nil || !r.filter.allowsName(ev.EventName) {
					continue
				}

				res.EventsFound++
				byType[ev.EventName]++
				parsed = append(parsed, ev)
			}
		}
	}

	if len(parsed) > 0 {
		n, err := e.indexer.StoreEvents(ctx, parsed)
		res.EventsIndexed = n
		if err != nil {
			res.Errors++
			replayErrorInc("store")
			e.log.Warnw("failed to index batch events",
				"session", r.session.ID,
				"from_block", from,
				"to_block", to,
				"events", len(parsed),
				"indexed", n,
				"error", err,
			)
		}
	}

	res.Duration = e.now().Sub(start)
	return res, byType, outcome
}

// fetchBlockByBlock fetches each block of [from, to] on its own. The returned slice is nil
// when every fetch failed; ok is false when the session was stopped or ctx ended meanwhile.
func (e *Engine) fetchBlockByBlock(
	ctx context.Context,
	r *run,
	from, to uint64,
	res *pkgreplay.BatchResult,
) ([]events.Block, bool) {
	var (
		blocks    []events.Block
		succeeded bool
	)

	for n := from; ; n++ {
		if ctx.Err() != nil || isClosed(r.stop) {
			return nil, false
		}

		res.FetchAttempts++
		bs, err := e.source.GetBlocks(ctx, n, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false
			}
			res.Errors++
			replayErrorInc("fetch")
			e.log.Debugw("block fetch failed", "session", r.session.ID, "block", n, "error", err)
		} else {
			succeeded = true
			blocks = append(blocks, bs...)
		}

		if n == to {
			break
		}
	}

	if !succeeded {
		return nil, true
	}
	if blocks == nil {
		blocks = []events.Block{}
	}
	return blocks, true
}

// advanceProgress moves progress past batchEnd and re-estimates completion from the
// remaining batch count, the average batch duration and the inter-batch delay.
func advanceProgress(p *pkgreplay.Progress, batchEnd, batchSize uint64, delay, avgBatch time.Duration, now time.Time) {
	p.CurrentBlock = batchEnd + 1
	p.ProcessedBlocks = batchEnd - p.FromBlock + 1
	if p.TotalBlocks > 0 {
		p.Percentage = int(p.ProcessedBlocks * 100 / p.TotalBlocks) //nolint:mnd,gosec
	}

	remaining := p.ToBlock - batchEnd
	batches := (remaining + batchSize - 1) / batchSize
	eta := now.Add(time.Duration(batches) * (avgBatch + delay)) //nolint:gosec
	p.EstimatedCompletion = &eta
}

// refreshRates recomputes the derived statistics as of now.
func refreshRates(s *pkgreplay.Session, now time.Time) {
	st := &s.Statistics
	st.Duration = now.Sub(s.StartedAt)
	if st.BlocksProcessed > 0 {
		st.AverageBlockDuration = st.Duration / time.Duration(st.BlocksProcessed) //nolint:gosec
		st.EventsPerBlock = float64(st.EventsProcessed) / float64(st.BlocksProcessed)
	}
	if secs := st.Duration.Seconds(); secs > 0 {
		st.EventsPerSecond = float64(st.EventsProcessed) / secs
	}
}

func cloneSession(s *pkgreplay.Session) *pkgreplay.Session {
	c := *s
	c.Config = cloneConfig(s.Config)
	c.Statistics.EventsByType = make(map[string]int, len(s.Statistics.EventsByType))
	for k, v := range s.Statistics.EventsByType {
		c.Statistics.EventsByType[k] = v
	}
	if s.Progress.EstimatedCompletion != nil {
		t := *s.Progress.EstimatedCompletion
		c.Progress.EstimatedCompletion = &t
	}
	if s.LastBatch != nil {
		b := *s.LastBatch
		c.LastBatch = &b
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
