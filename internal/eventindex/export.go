package eventindex

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// Format is an export/import encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv" in any case; empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: json, csv)", s)
	}
}

// CSVHeader is the header row of the flat export.
var CSVHeader = []string{
	"id", "eventName", "chainId", "blockNumber", "transactionHash", "address", "timestamp", "status",
}

// Snapshot is the structured export of the whole store.
type Snapshot struct {
	Timestamp  time.Time              `json:"timestamp"`
	Events     []*events.IndexedEvent `json:"events"`
	Statistics events.Statistics      `json:"statistics"`
}

// snapshotEvents returns copies of all events in insertion order.
func (i *Indexer) snapshotEvents() []*events.IndexedEvent {
	i.mu.RLock()
	entries := make([]*entry, 0, len(i.entries))
	for _, e := range i.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].seq < entries[b].seq })

	out := make([]*events.IndexedEvent, len(entries))
	for n, e := range entries {
		out[n] = e.ev.Clone()
	}
	i.mu.RUnlock()

	return out
}

// Export writes the full store in the given format.
func (i *Indexer) Export(w io.Writer, format Format) error {
	evs := i.snapshotEvents()

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Snapshot{
			Timestamp:  i.now().UTC(),
			Events:     evs,
			Statistics: i.Statistics(nil),
		})

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(CSVHeader); err != nil {
			return err
		}
		for _, ev := range evs {
			record := []string{
				ev.ID,
				ev.EventName,
				ev.ChainID,
				strconv.FormatUint(ev.BlockNumber, 10),
				ev.TransactionHash.Hex(),
				ev.Address.Hex(),
				ev.Timestamp.UTC().Format(time.RFC3339Nano),
				string(ev.Status),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Replace drops every event that is not part of the import.
	Replace bool
}

// Import reads a full export and indexes every record as StoreEvent would.
// The whole payload is validated first; nothing is committed if any record is invalid
// or if storage rejects the new events.
func (i *Indexer) Import(ctx context.Context, r io.Reader, format Format, opts ImportOptions) (int, error) {
	var (
		items     []*events.IndexedEvent
		keepState bool
		err       error
	)

	switch format {
	case FormatJSON:
		items, err = decodeSnapshot(r)
	case FormatCSV:
		items, err = decodeCSV(r)
		keepState = true
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		importFailuresInc()
		return 0, fmt.Errorf("import rejected: %w", err)
	}

	var indexed []*events.IndexedEvent
	i.mu.Lock()
	switch {
	case opts.Replace:
		indexed, err = i.replaceLocked(ctx, items)
	case len(items) > 0:
		indexed, err = i.installLocked(ctx, items, keepState)
	}
	i.mu.Unlock()
	if err != nil {
		return 0, err
	}

	ids := make([]string, len(indexed))
	for n, ev := range indexed {
		ids[n] = ev.ID
	}
	i.publish(events.TopicBatchIndexed, BatchIndexed{Count: len(ids), IDs: ids})
	i.log.Infow("imported events", "count", len(indexed), "format", format, "replace", opts.Replace)

	return len(indexed), nil
}

// replaceLocked swaps the whole store for items. The new events are persisted before stale
// ids are deleted, so a failed write never loses a stored event.
func (i *Indexer) replaceLocked(ctx context.Context, items []*events.IndexedEvent) ([]*events.IndexedEvent, error) {
	indexed, now := i.prepareLocked(items, false)

	if i.storage != nil {
		if len(indexed) > 0 {
			if err := i.storage.Put(ctx, indexed...); err != nil {
				storageErrorsInc("put")
				return nil, fmt.Errorf("failed to persist events: %w", err)
			}
		}

		fresh := make(map[string]struct{}, len(indexed))
		for _, ie := range indexed {
			fresh[ie.ID] = struct{}{}
		}
		stale := make([]string, 0, len(i.entries))
		for id := range i.entries {
			if _, ok := fresh[id]; !ok {
				stale = append(stale, id)
			}
		}

		if len(stale) > 0 {
			if err := i.storage.Delete(ctx, stale...); err != nil {
				storageErrorsInc("delete")
				// storage holds the old and the new events, mirror that
				i.commitLocked(indexed, now)
				return nil, fmt.Errorf("failed to delete replaced events: %w", err)
			}
		}
	}

	i.entries = make(map[string]*entry)
	i.terms = make(map[string]map[string]struct{})
	i.commitLocked(indexed, now)

	return indexed, nil
}

func decodeSnapshot(r io.Reader) ([]*events.IndexedEvent, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	var errs []error
	for n, ev := range snap.Events {
		switch {
		case ev == nil:
			errs = append(errs, fmt.Errorf("events[%d]: null record", n))
		case ev.ID == "":
			errs = append(errs, fmt.Errorf("events[%d]: %w", n, events.ErrEmptyEventID))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return snap.Events, nil
}

func decodeCSV(r io.Reader) ([]*events.IndexedEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for n, col := range CSVHeader {
		if header[n] != col {
			return nil, fmt.Errorf("unexpected header column %d: got %q, want %q", n+1, header[n], col)
		}
	}

	var (
		items []*events.IndexedEvent
		errs  []error
	)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ev, err := parseCSVRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		items = append(items, ev)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return items, nil
}

func parseCSVRecord(rec []string) (*events.IndexedEvent, error) {
	id, name, chainID, block, txHash, addr, ts, status :=
		rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6], rec[7]

	if id == "" {
		return nil, events.ErrEmptyEventID
	}

	blockNumber, err := strconv.ParseUint(block, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid blockNumber %q", block)
	}

	hashBytes, err := hexutil.Decode(txHash)
	if err != nil || len(hashBytes) != common.HashLength {
		return nil, fmt.Errorf("invalid transactionHash %q", txHash)
	}

	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("invalid address %q", addr)
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q", ts)
	}

	return &events.IndexedEvent{
		ParsedEvent: events.ParsedEvent{
			ID:              id,
			EventName:       name,
			ChainID:         chainID,
			BlockNumber:     blockNumber,
			TransactionHash: common.BytesToHash(hashBytes),
			Address:         common.HexToAddress(addr),
			Timestamp:       timestamp,
			Status:          events.Status(status),
		},
	}, nil
}
