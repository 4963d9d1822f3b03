package rpc

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

const maxHeaderBatch = 100

var _ events.DataSource = (*Client)(nil)

// LogFilter narrows eth_getLogs to the contracts and event signatures the parser understands.
// Empty fields match everything.
type LogFilter struct {
	Addresses []gethcommon.Address
	Topic0    []gethcommon.Hash
}

// Option configures a Client.
type Option func(*Client)

// WithRetry enables retries with exponential backoff.
func WithRetry(cfg *config.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithFetchTimeout bounds a single GetBlocks call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetchTimeout = d }
}

// WithLogFilter sets the address and topic filter used for eth_getLogs.
func WithLogFilter(f LogFilter) Option {
	return func(c *Client) { c.filter = f }
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Client is a JSON-RPC backed events.DataSource.
type Client struct {
	eth *ethclient.Client
	rpc *rpc.Client

	retry        *config.RetryConfig
	fetchTimeout time.Duration
	filter       LogFilter
	log          *logger.Logger
}

// NewClient creates a new RPC client connected to the given endpoint.
func NewClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	c := &Client{
		eth: ethclient.NewClient(rpcClient),
		rpc: rpcClient,
		log: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewFromConfig creates a client from the chain configuration.
func NewFromConfig(ctx context.Context, cfg config.ChainConfig, filter LogFilter, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetDefaultLogger().WithComponent(common.ComponentRPC)
	}

	return NewClient(ctx, cfg.RPCURL,
		WithRetry(cfg.Retry),
		WithFetchTimeout(cfg.FetchTimeout.Duration),
		WithLogFilter(filter),
		WithLogger(log),
	)
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// LatestBlockNumber returns the current chain head.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.call(ctx, "eth_blockNumber", func(ctx context.Context) error {
		n, err := c.eth.BlockNumber(ctx)
		head = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}

	return head, nil
}

// GetBlocks returns the blocks in [from, to] that contain matching logs, in ascending order.
// Blocks without matching logs are omitted.
func (c *Client) GetBlocks(ctx context.Context, from, to uint64) ([]events.Block, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d > to %d", ErrInvalidRange, from, to)
	}

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	logs, err := c.getLogs(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byBlock := make(map[uint64][]types.Log)
	for _, l := range logs {
		if l.Removed {
			continue
		}
		byBlock[l.BlockNumber] = append(byBlock[l.BlockNumber], l)
	}
	if len(byBlock) == 0 {
		return nil, nil
	}

	numbers := make([]uint64, 0, len(byBlock))
	for n := range byBlock {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	headers, err := c.getHeaders(ctx, numbers)
	if err != nil {
		return nil, err
	}

	blocks := make([]events.Block, 0, len(numbers))
	for i, n := range numbers {
		h := headers[i]
		if h == nil {
			return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, n)
		}

		block, err := assembleBlock(h, byBlock[n])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	c.log.Debugw("fetched blocks",
		"from", from,
		"to", to,
		"logs", len(logs),
		"blocks", len(blocks),
	)

	return blocks, nil
}

// getLogs fetches logs for [from, to], splitting the range when the node
// reports too many results.
func (c *Client) getLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: c.filter.Addresses,
	}
	if len(c.filter.Topic0) > 0 {
		query.Topics = [][]gethcommon.Hash{c.filter.Topic0}
	}

	var logs []types.Log
	err := c.call(ctx, "eth_getLogs", func(ctx context.Context) error {
		res, err := c.eth.FilterLogs(ctx, query)
		logs = res
		return err
	})
	if err == nil {
		return logs, nil
	}

	tooMany, data := IsTooManyResultsError(err)
	if !tooMany || from == to {
		return nil, fmt.Errorf("failed to get logs for blocks %d-%d: %w", from, to, err)
	}

	rpcRangeSplits.Inc()
	mid := from + (to-from)/2
	if sFrom, sTo, ok := ParseSuggestedBlockRange(data); ok && sFrom == from && sTo < to {
		mid = sTo
	}

	c.log.Debugw("splitting log range", "from", from, "to", to, "mid", mid)

	left, err := c.getLogs(ctx, from, mid)
	if err != nil {
		return nil, err
	}
	right, err := c.getLogs(ctx, mid+1, to)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

// blockHeader is the subset of eth_getBlockByNumber the data source needs.
// Decoding only these fields keeps chains with non-standard headers working.
type blockHeader struct {
	Number    hexutil.Uint64  `json:"number"`
	Hash      gethcommon.Hash `json:"hash"`
	Timestamp hexutil.Uint64  `json:"timestamp"`
}

// getHeaders fetches headers in batches; the result is aligned with numbers.
func (c *Client) getHeaders(ctx context.Context, numbers []uint64) ([]*blockHeader, error) {
	all := make([]*blockHeader, 0, len(numbers))

	for i := 0; i < len(numbers); i += maxHeaderBatch {
		chunk := numbers[i:min(i+maxHeaderBatch, len(numbers))]

		results := make([]*blockHeader, len(chunk))
		err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, n := range chunk {
				results[j] = nil
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByNumber",
					Args:   []any{toBlockNumArg(n), false},
					Result: &results[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}
			for _, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get block headers: %w", err)
		}

		all = append(all, results...)
	}

	return all, nil
}

// call wraps an RPC call with retries and metrics.
func (c *Client) call(ctx context.Context, method string, fn func(context.Context) error) error {
	return retryWithBackoff(ctx, c.retry, c.log, method, func() error {
		rpcMethodInc(method)
		start := time.Now()
		err := fn(ctx)
		rpcMethodDuration(method, time.Since(start))
		if err != nil {
			class, _ := classifyError(err)
			rpcMethodError(method, class)
		}
		return err
	})
}

// assembleBlock groups logs by transaction in log order.
func assembleBlock(h *blockHeader, logs []types.Log) (events.Block, error) {
	block := events.Block{
		Number:    uint64(h.Number),
		Hash:      h.Hash,
		Timestamp: time.Unix(int64(h.Timestamp), 0).UTC(), //nolint:gosec
	}

	slices.SortStableFunc(logs, func(a, b types.Log) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		default:
			return 0
		}
	})

	txIndex := make(map[gethcommon.Hash]int)
	for _, l := range logs {
		if l.BlockHash != (gethcommon.Hash{}) && l.BlockHash != h.Hash {
			return events.Block{}, fmt.Errorf("%w: block %d log hash %s header hash %s",
				ErrBlockChanged, block.Number, l.BlockHash.Hex(), h.Hash.Hex())
		}

		i, ok := txIndex[l.TxHash]
		if !ok {
			i = len(block.Transactions)
			txIndex[l.TxHash] = i
			block.Transactions = append(block.Transactions, events.Transaction{Hash: l.TxHash})
		}
		block.Transactions[i].Logs = append(block.Transactions[i].Logs, l)
	}

	return block, nil
}

// toBlockNumArg converts a block number to hex format.
func toBlockNumArg(blockNum uint64) string {
	return fmt.Sprintf("0x%x", blockNum)
}
