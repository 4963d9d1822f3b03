package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type fakeLog struct {
	block    uint64
	tx       gethcommon.Hash
	index    uint
	address  gethcommon.Address
	topic0   gethcommon.Hash
	removed  bool
	wrongTag bool
}

// fakeNode is a minimal JSON-RPC node serving eth_blockNumber, eth_getLogs and eth_getBlockByNumber.
type fakeNode struct {
	mu sync.Mutex

	head        uint64
	logs        []fakeLog
	maxRange    uint64
	unavailable int

	logRanges [][2]uint64
	filters   []map[string]any
}

func blockHash(n uint64) gethcommon.Hash {
	return gethcommon.HexToHash(fmt.Sprintf("0xb10c%x", n))
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unavailable > 0 {
		f.unavailable--
		http.Error(w, "try later", http.StatusServiceUnavailable)
		return
	}

	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		var reqs []rpcRequest
		_ = json.Unmarshal(body, &reqs)
		resps := make([]rpcResponse, 0, len(reqs))
		for _, req := range reqs {
			resps = append(resps, f.handle(req))
		}
		_ = json.NewEncoder(w).Encode(resps)
		return
	}

	var req rpcRequest
	_ = json.Unmarshal(body, &req)
	_ = json.NewEncoder(w).Encode(f.handle(req))
}

func (f *fakeNode) handle(req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "eth_blockNumber":
		resp.Result = fmt.Sprintf("0x%x", f.head)

	case "eth_getBlockByNumber":
		n := parseHex(req.Params[0].(string))
		if n > f.head {
			resp.Result = nil
			break
		}
		resp.Result = map[string]any{
			"number":    fmt.Sprintf("0x%x", n),
			"hash":      blockHash(n).Hex(),
			"timestamp": fmt.Sprintf("0x%x", 1_700_000_000+n*12),
		}

	case "eth_getLogs":
		filter := req.Params[0].(map[string]any)
		f.filters = append(f.filters, filter)
		from := parseHex(filter["fromBlock"].(string))
		to := parseHex(filter["toBlock"].(string))
		f.logRanges = append(f.logRanges, [2]uint64{from, to})

		if f.maxRange > 0 && to-from+1 > f.maxRange {
			msg := fmt.Sprintf("Query returned more than 10000 results. Try with this block range [0x%x, 0x%x].",
				from, from+f.maxRange-1)
			resp.Error = &rpcError{Code: -32005, Message: "query returned more than 10000 results", Data: msg}
			break
		}

		out := []map[string]any{}
		for _, l := range f.logs {
			if l.block < from || l.block > to {
				continue
			}
			hash := blockHash(l.block)
			if l.wrongTag {
				hash = gethcommon.HexToHash("0xbad")
			}
			out = append(out, map[string]any{
				"address":          l.address.Hex(),
				"topics":           []string{l.topic0.Hex()},
				"data":             "0x",
				"blockNumber":      fmt.Sprintf("0x%x", l.block),
				"blockHash":        hash.Hex(),
				"transactionHash":  l.tx.Hex(),
				"transactionIndex": "0x0",
				"logIndex":         fmt.Sprintf("0x%x", l.index),
				"removed":          l.removed,
			})
		}
		resp.Result = out

	default:
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
	}

	return resp
}

func parseHex(s string) uint64 {
	n, _ := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	return n
}

func newTestClient(t *testing.T, node *fakeNode, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

var (
	txA      = gethcommon.HexToHash("0xaa")
	txB      = gethcommon.HexToHash("0xbb")
	token    = gethcommon.HexToAddress("0x1000000000000000000000000000000000000001")
	transfer = gethcommon.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
)

func TestClient_LatestBlockNumber(t *testing.T) {
	c := newTestClient(t, &fakeNode{head: 1234})

	head, err := c.LatestBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1234), head)
}

func TestClient_GetBlocks(t *testing.T) {
	node := &fakeNode{
		head: 100,
		logs: []fakeLog{
			{block: 10, tx: txA, index: 1, address: token, topic0: transfer},
			{block: 10, tx: txB, index: 2, address: token, topic0: transfer},
			{block: 10, tx: txA, index: 0, address: token, topic0: transfer},
			{block: 12, tx: txB, index: 0, address: token, topic0: transfer},
			{block: 13, tx: txB, index: 0, address: token, topic0: transfer, removed: true},
		},
	}
	c := newTestClient(t, node)

	blocks, err := c.GetBlocks(context.Background(), 10, 14)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	b := blocks[0]
	require.Equal(t, uint64(10), b.Number)
	require.Equal(t, blockHash(10), b.Hash)
	require.Equal(t, time.Unix(1_700_000_120, 0).UTC(), b.Timestamp)
	require.Len(t, b.Transactions, 2)
	require.Equal(t, txA, b.Transactions[0].Hash)
	require.Len(t, b.Transactions[0].Logs, 2)
	require.Equal(t, uint(0), b.Transactions[0].Logs[0].Index)
	require.Equal(t, uint(1), b.Transactions[0].Logs[1].Index)
	require.Equal(t, txB, b.Transactions[1].Hash)

	require.Equal(t, uint64(12), blocks[1].Number)
}

func TestClient_GetBlocks_Empty(t *testing.T) {
	c := newTestClient(t, &fakeNode{head: 100})

	blocks, err := c.GetBlocks(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestClient_GetBlocks_InvalidRange(t *testing.T) {
	c := newTestClient(t, &fakeNode{head: 100})

	_, err := c.GetBlocks(context.Background(), 10, 9)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestClient_GetBlocks_SplitsTooManyResults(t *testing.T) {
	node := &fakeNode{
		head:     100,
		maxRange: 5,
		logs: []fakeLog{
			{block: 2, tx: txA, address: token, topic0: transfer},
			{block: 9, tx: txB, address: token, topic0: transfer},
		},
	}
	c := newTestClient(t, node)

	blocks, err := c.GetBlocks(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, [][2]uint64{{1, 10}, {1, 5}, {6, 10}}, node.logRanges)
}

func TestClient_GetBlocks_SplitsDownToSingleBlocks(t *testing.T) {
	node := &fakeNode{head: 100, maxRange: 1}
	c := newTestClient(t, node)

	_, err := c.GetBlocks(context.Background(), 7, 8)
	require.NoError(t, err)
	require.Equal(t, [][2]uint64{{7, 8}, {7, 7}, {8, 8}}, node.logRanges)
}

func TestClient_GetBlocks_BlockChanged(t *testing.T) {
	node := &fakeNode{
		head: 100,
		logs: []fakeLog{{block: 5, tx: txA, address: token, topic0: transfer, wrongTag: true}},
	}
	c := newTestClient(t, node)

	_, err := c.GetBlocks(context.Background(), 5, 5)
	require.ErrorIs(t, err, ErrBlockChanged)
}

func TestClient_GetBlocks_MissingHeader(t *testing.T) {
	node := &fakeNode{
		head: 3,
		logs: []fakeLog{{block: 5, tx: txA, address: token, topic0: transfer}},
	}
	c := newTestClient(t, node)

	_, err := c.GetBlocks(context.Background(), 5, 5)
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestClient_GetBlocks_AppliesLogFilter(t *testing.T) {
	node := &fakeNode{head: 100}
	c := newTestClient(t, node, WithLogFilter(LogFilter{
		Addresses: []gethcommon.Address{token},
		Topic0:    []gethcommon.Hash{transfer},
	}))

	_, err := c.GetBlocks(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, node.filters, 1)

	filter := node.filters[0]
	require.Equal(t, []any{strings.ToLower(token.Hex())}, lowerAll(filter["address"].([]any)))
	topics := filter["topics"].([]any)
	require.Len(t, topics, 1)
	require.Equal(t, []any{transfer.Hex()}, topics[0].([]any))
}

func lowerAll(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v.(string))
	}
	return out
}

func TestClient_RetriesUnavailableNode(t *testing.T) {
	node := &fakeNode{head: 42, unavailable: 2}
	c := newTestClient(t, node, WithRetry(fastRetry(3)))

	head, err := c.LatestBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), head)
}

func TestClient_NoRetryWithoutConfig(t *testing.T) {
	node := &fakeNode{head: 42, unavailable: 1}
	c := newTestClient(t, node)

	_, err := c.LatestBlockNumber(context.Background())
	require.ErrorContains(t, err, "503")
}

func TestToBlockNumArg(t *testing.T) {
	require.Equal(t, "0x0", toBlockNumArg(0))
	require.Equal(t, "0x64", toBlockNumArg(100))
	require.Equal(t, "0x112a880", toBlockNumArg(18000000))
}
