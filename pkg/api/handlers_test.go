package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/manager"
	"github.com/goran-ethernal/ChainReplay/internal/notify"
	"github.com/goran-ethernal/ChainReplay/internal/replay"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/goran-ethernal/ChainReplay/pkg/events/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	apiToken = gethcommon.HexToAddress("0x000000000000000000000000000000000000a0a0")
	apiBase  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func txHashOf(n uint64) gethcommon.Hash {
	return gethcommon.BigToHash(new(big.Int).SetUint64(n + 1))
}

// chainBlocks returns one block per number with a single log each.
func chainBlocks(_ context.Context, from, to uint64) ([]events.Block, error) {
	var out []events.Block
	for n := from; n <= to; n++ {
		out = append(out, events.Block{
			Number:    n,
			Hash:      gethcommon.BigToHash(new(big.Int).SetUint64(n + 1_000_000)),
			Timestamp: apiBase.Add(time.Duration(n) * time.Hour), //nolint:gosec
			Transactions: []events.Transaction{{
				Hash: txHashOf(n),
				Logs: []types.Log{{Address: apiToken, Topics: []gethcommon.Hash{{0x01}}, BlockNumber: n, TxHash: txHashOf(n)}},
			}},
		})
	}
	return out, nil
}

// apiParser names odd blocks Transfer and even blocks Approval; the amount is the block number.
type apiParser struct{}

func (apiParser) ParseLog(l types.Log, tx events.Transaction, b events.Block) (*events.ParsedEvent, error) {
	name := "Transfer"
	if b.Number%2 == 0 {
		name = "Approval"
	}
	return &events.ParsedEvent{
		ID:              events.EventID(tx.Hash, l.Index),
		ChainID:         "1",
		BlockNumber:     b.Number,
		BlockHash:       b.Hash,
		TransactionHash: tx.Hash,
		LogIndex:        l.Index,
		Address:         l.Address,
		Topics:          l.Topics,
		EventName:       name,
		Params:          map[string]any{"amount": b.Number},
		Timestamp:       b.Timestamp,
		Status:          events.StatusConfirmed,
	}, nil
}

type fixture struct {
	manager *manager.Manager
	server  *Server
	source  *mocks.DataSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	source := mocks.NewDataSource(t)
	source.EXPECT().LatestBlockNumber(mock.Anything).Return(uint64(100), nil).Maybe()
	source.EXPECT().GetBlocks(mock.Anything, mock.Anything, mock.Anything).RunAndReturn(chainBlocks).Maybe()

	n := notify.New(nil)
	idx := eventindex.New(eventindex.Config{DefaultPageLimit: 2}, nil, n, nil)
	engine := replay.New(replay.Config{}, source, apiParser{}, idx, replay.NewMemoryCheckpoints(), n, nil)
	m := manager.New(idx, engine, n, nil, manager.WithHeadCheck(source))
	t.Cleanup(func() { _ = m.Close() })

	cfg := &config.APIConfig{Enabled: true, ListenAddress: "localhost:0"}
	cfg.ApplyDefaults()

	return &fixture{manager: m, server: NewServer(cfg, m, nil), source: source}
}

// parsedEvents parses blocks from..to as the replay engine would.
func parsedEvents(from, to uint64) []*events.ParsedEvent {
	blocks, _ := chainBlocks(context.Background(), from, to)

	var evs []*events.ParsedEvent
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			for _, l := range tx.Logs {
				ev, _ := apiParser{}.ParseLog(l, tx, b)
				evs = append(evs, ev)
			}
		}
	}
	return evs
}

// seed indexes blocks from..to.
func (f *fixture) seed(t *testing.T, from, to uint64) {
	t.Helper()

	_, err := f.manager.Indexer().StoreEvents(context.Background(), parsedEvents(from, to))
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func blockNumbers(evs []*events.IndexedEvent) []uint64 {
	out := make([]uint64, len(evs))
	for i, ev := range evs {
		out[i] = ev.BlockNumber
	}
	return out
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		status         int
		data           any
		expectedBody   string
		expectedStatus int
	}{
		{
			name:           "success with simple data",
			status:         http.StatusOK,
			data:           map[string]string{"message": "success"},
			expectedBody:   `{"message":"success"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "success with nil",
			status:         http.StatusOK,
			data:           nil,
			expectedBody:   "null",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error status",
			status:         http.StatusConflict,
			data:           map[string]string{"error": "busy"},
			expectedBody:   `{"error":"busy"}`,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRespondJSON_EncodingError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()

	// Channel cannot be JSON encoded
	respondJSON(w, http.StatusOK, make(chan int))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to encode response")
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondError(w, http.StatusNotFound, "event not found")

	require.Equal(t, http.StatusNotFound, w.Code)
	response := decode[ErrorResponse](t, w)
	require.Equal(t, http.StatusNotFound, response.Code)
	require.Equal(t, "Not Found", response.Error)
	require.Equal(t, "event not found", response.Message)
	require.Empty(t, response.Errors)
}

func TestRespondValidation(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondValidation(w, "invalid replay configuration", []string{"a", "b"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	response := decode[ErrorResponse](t, w)
	require.Equal(t, []string{"a", "b"}, response.Errors)
}

func TestParseSearchFilter(t *testing.T) {
	t.Parallel()

	u64 := func(v uint64) *uint64 { return &v }
	at := func(h int) *time.Time {
		v := apiBase.Add(time.Duration(h) * time.Hour)
		return &v
	}

	tests := []struct {
		name     string
		query    string
		expected events.Filter
		errMsg   string
	}{
		{
			name:     "empty query",
			query:    "",
			expected: events.Filter{},
		},
		{
			name: "every parameter",
			query: "event_name=Transfer&chain_id=1&address=0xabc&from_block=10&to_block=0x14" +
				"&from_time=" + apiBase.Format(time.RFC3339) + "&to_time=" + fmt.Sprint(apiBase.Add(2*time.Hour).Unix()) +
				"&topics=0x01,%200x02&q=alice%20bob&limit=50&offset=5&sort_by=blockNumber&sort_order=DESC",
			expected: events.Filter{
				EventName: "Transfer",
				ChainID:   "1",
				Address:   "0xabc",
				FromBlock: u64(10),
				ToBlock:   u64(20),
				FromTime:  at(0),
				ToTime:    at(2),
				Topics:    []string{"0x01", "0x02"},
				Query:     "alice bob",
				Limit:     50,
				Offset:    5,
				SortBy:    events.SortByBlockNumber,
				SortOrder: events.SortDesc,
			},
		},
		{name: "limit too small", query: "limit=0", errMsg: "invalid limit"},
		{name: "limit too large", query: "limit=1001", errMsg: "invalid limit"},
		{name: "negative offset", query: "offset=-1", errMsg: "invalid offset"},
		{name: "bad from_block", query: "from_block=abc", errMsg: "invalid from_block"},
		{name: "inverted block range", query: "from_block=20&to_block=10", errMsg: "from_block cannot be greater"},
		{name: "bad time", query: "from_time=yesterday", errMsg: "invalid from_time"},
		{name: "inverted time range", query: "from_time=200&to_time=100", errMsg: "from_time cannot be after"},
		{name: "bad sort_by", query: "sort_by=gas", errMsg: "invalid sort_by"},
		{name: "bad sort_order", query: "sort_order=up", errMsg: "invalid sort_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/events?"+tt.query, nil)
			f, err := parseSearchFilter(req)
			if tt.errMsg != "" {
				require.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, f)
		})
	}
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 3)

	w := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	require.Equal(t, "ok", resp.Status)
	require.Empty(t, resp.Error)
	require.Equal(t, 3, resp.Overview.Events)
	require.Positive(t, resp.Overview.Terms)

	w = f.do(t, http.MethodGet, "/api/v1/overview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, decode[manager.Overview](t, w).Events)
}

func TestHandler_Health_Unhealthy(t *testing.T) {
	source := mocks.NewDataSource(t)
	source.EXPECT().LatestBlockNumber(mock.Anything).Return(uint64(0), fmt.Errorf("node down"))

	idx := eventindex.New(eventindex.Config{}, nil, nil, nil)
	m := manager.New(idx, replay.New(replay.Config{}, source, apiParser{}, idx, nil, nil, nil), nil, nil,
		manager.WithHeadCheck(source))
	srv := NewServer(&config.APIConfig{}, m, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[HealthResponse](t, w)
	require.Equal(t, "unhealthy", resp.Status)
	require.Equal(t, "node down", resp.Error)
}

func TestHandler_SearchEvents(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 5)

	tests := []struct {
		name       string
		query      string
		blocks     []uint64
		pagination PaginationResult
	}{
		{
			name:       "default page limit",
			query:      "event_name=Transfer&sort_by=blockNumber&sort_order=asc",
			blocks:     []uint64{1, 3},
			pagination: PaginationResult{Total: 3, Limit: 2, Offset: 0, HasMore: true},
		},
		{
			name:       "second page",
			query:      "event_name=Transfer&sort_by=blockNumber&sort_order=asc&offset=2",
			blocks:     []uint64{5},
			pagination: PaginationResult{Total: 3, Limit: 2, Offset: 2, HasMore: false},
		},
		{
			name:       "block range newest first",
			query:      "from_block=2&to_block=4&limit=10&sort_by=blockNumber&sort_order=desc",
			blocks:     []uint64{4, 3, 2},
			pagination: PaginationResult{Total: 3, Limit: 10},
		},
		{
			name:       "free text query",
			query:      "q=approval&limit=10&sort_by=blockNumber&sort_order=asc",
			blocks:     []uint64{2, 4},
			pagination: PaginationResult{Total: 2, Limit: 10},
		},
		{
			name:       "no match",
			query:      "chain_id=137",
			blocks:     []uint64{},
			pagination: PaginationResult{Total: 0, Limit: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/v1/events?"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			resp := decode[EventResponse](t, w)
			require.Equal(t, tt.blocks, blockNumbers(resp.Events))
			require.Equal(t, tt.pagination, resp.Pagination)
		})
	}

	w := f.do(t, http.MethodGet, "/api/v1/events?limit=5000", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode[ErrorResponse](t, w).Message, "invalid limit")
}

func TestHandler_GetEvent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 2)

	id := events.EventID(txHashOf(2), 0)
	w := f.do(t, http.MethodGet, "/api/v1/events/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ev := decode[events.IndexedEvent](t, w)
	require.Equal(t, id, ev.ID)
	require.Equal(t, "Approval", ev.EventName)
	require.Equal(t, uint64(2), ev.BlockNumber)
	require.NotEmpty(t, ev.SearchTerms)

	w = f.do(t, http.MethodGet, "/api/v1/events/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ProcessingState(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 1)
	id := events.EventID(txHashOf(1), 0)

	processed := make(chan events.Notification, 1)
	unsubscribe := f.manager.Subscribe(func(n events.Notification) { processed <- n }, events.TopicProcessed)
	defer unsubscribe()

	w := f.do(t, http.MethodPost, "/api/v1/events/"+id+"/processed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ev := decode[events.IndexedEvent](t, w)
	require.True(t, ev.Metadata.Processed)
	require.NotNil(t, ev.ProcessedAt)
	require.Equal(t, events.TopicProcessed, (<-processed).Topic)

	for range 2 {
		w = f.do(t, http.MethodPost, "/api/v1/events/"+id+"/retry", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Equal(t, 2, decode[events.IndexedEvent](t, w).Metadata.RetryCount)

	w = f.do(t, http.MethodPut, "/api/v1/events/"+id+"/status",
		StatusUpdateRequest{Status: events.StatusFinalized, Confirmations: 64})
	require.Equal(t, http.StatusOK, w.Code)
	ev = decode[events.IndexedEvent](t, w)
	require.Equal(t, events.StatusFinalized, ev.Status)
	require.Equal(t, uint64(64), ev.Confirmations)
	require.True(t, ev.Metadata.Processed)

	w = f.do(t, http.MethodPut, "/api/v1/events/"+id+"/status", `{"status":"orphaned"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/events/"+id+"/status", `{"status":"pending","extra":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/events/missing/processed", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Lookups(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 5)

	tests := []struct {
		name   string
		path   string
		status int
		blocks []uint64
	}{
		{name: "by transaction", path: "/api/v1/transactions/" + txHashOf(3).Hex() + "/events", status: 200, blocks: []uint64{3}},
		{name: "by address with limit", path: "/api/v1/addresses/" + apiToken.Hex() + "/events?limit=2", status: 200, blocks: []uint64{5, 4}},
		{name: "by address default limit", path: "/api/v1/addresses/" + apiToken.Hex() + "/events", status: 200, blocks: []uint64{5, 4}},
		{name: "by name", path: "/api/v1/names/Approval/events?limit=10", status: 200, blocks: []uint64{4, 2}},
		{name: "by block range", path: "/api/v1/blocks/2/4/events", status: 200, blocks: []uint64{2, 3, 4}},
		{name: "by hex block range", path: "/api/v1/blocks/0x1/0x2/events", status: 200, blocks: []uint64{1, 2}},
		{name: "inverted block range", path: "/api/v1/blocks/5/1/events", status: 400},
		{name: "bad block", path: "/api/v1/blocks/x/1/events", status: 400},
		{
			name: "by time range",
			path: "/api/v1/time-range/events?from=" + apiBase.Add(2*time.Hour).Format(time.RFC3339) +
				"&to=" + apiBase.Add(4*time.Hour).Format(time.RFC3339),
			status: 200,
			blocks: []uint64{2, 3, 4},
		},
		{name: "time range missing bound", path: "/api/v1/time-range/events?from=0", status: 400},
		{name: "unknown name", path: "/api/v1/names/Swap/events", status: 200, blocks: []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			resp := decode[EventListResponse](t, w)
			require.Equal(t, tt.blocks, blockNumbers(resp.Events))
			require.Equal(t, len(tt.blocks), resp.Count)
		})
	}
}

func TestHandler_StatsAndAggregate(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 5)

	w := f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[events.Statistics](t, w)
	require.Equal(t, 5, stats.TotalEvents)
	require.Equal(t, map[string]int{"Transfer": 3, "Approval": 2}, stats.ByEventName)
	require.Equal(t, map[string]int{"1": 5}, stats.ByChain)

	w = f.do(t, http.MethodGet, "/api/v1/stats?from_time="+apiBase.Add(4*time.Hour).Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, decode[events.Statistics](t, w).TotalEvents)

	w = f.do(t, http.MethodGet, "/api/v1/aggregate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	agg := decode[AggregateResponse](t, w)
	require.Equal(t, events.GroupByEventName, agg.GroupBy)
	require.Equal(t, []events.AggregateGroup{
		{Key: "Transfer", Count: 3, UniqueAddresses: 1, TotalAmount: 9, AverageAmount: 3},
		{Key: "Approval", Count: 2, UniqueAddresses: 1, TotalAmount: 6, AverageAmount: 3},
	}, agg.Groups)

	w = f.do(t, http.MethodGet, "/api/v1/aggregate?group_by=chainId", nil)
	require.Equal(t, http.StatusOK, w.Code)
	agg = decode[AggregateResponse](t, w)
	require.Len(t, agg.Groups, 1)
	require.Equal(t, 5, agg.Groups[0].Count)

	w = f.do(t, http.MethodGet, "/api/v1/aggregate?group_by=block", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ExportImport(t *testing.T) {
	src := newFixture(t)
	src.seed(t, 1, 4)

	w := src.do(t, http.MethodGet, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "events.json")
	snapshot := w.Body.Bytes()

	dst := newFixture(t)
	dst.seed(t, 10, 10)

	w = dst.do(t, http.MethodPost, "/api/v1/import?replace=true", snapshot)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, ImportResponse{Imported: 4, Total: 4}, decode[ImportResponse](t, w))
	require.False(t, dst.manager.Indexer().HasEvent(events.EventID(txHashOf(10), 0)))

	w = src.do(t, http.MethodGet, "/api/v1/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(w.Body.String(), strings.Join(eventindex.CSVHeader, ",")))

	w = src.do(t, http.MethodGet, "/api/v1/export?format=xml", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = dst.do(t, http.MethodPost, "/api/v1/import", "not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 4, dst.manager.Indexer().Count())

	w = dst.do(t, http.MethodPost, "/api/v1/import?replace=maybe", snapshot)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Maintenance(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1, 5)

	w := f.do(t, http.MethodGet, "/api/v1/maintenance/consistency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ConsistencyResponse{Consistent: true}, decode[ConsistencyResponse](t, w))

	w = f.do(t, http.MethodPost, "/api/v1/maintenance/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rebuilt := decode[RebuildResponse](t, w)
	require.Equal(t, 5, rebuilt.Events)
	require.Positive(t, rebuilt.Terms)

	cutoff := apiBase.Add(3 * time.Hour)
	w = f.do(t, http.MethodPost, "/api/v1/maintenance/cleanup", CleanupRequest{Before: cutoff.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, w.Code)
	cleanup := decode[CleanupResponse](t, w)
	require.Equal(t, 2, cleanup.Removed)
	require.True(t, cutoff.Equal(cleanup.Cutoff))
	require.Equal(t, 3, f.manager.Indexer().Count())

	// every seeded event is far older than a day
	w = f.do(t, http.MethodPost, "/api/v1/maintenance/cleanup", CleanupRequest{OlderThan: "24h"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, decode[CleanupResponse](t, w).Removed)

	for _, body := range []any{
		CleanupRequest{},
		CleanupRequest{Before: "0", OlderThan: "1h"},
		CleanupRequest{OlderThan: "-1h"},
		CleanupRequest{Before: "soon"},
	} {
		w = f.do(t, http.MethodPost, "/api/v1/maintenance/cleanup", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}
