package manager

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/migrations"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/stretchr/testify/require"
)

var testToken = common.HexToAddress("0x000000000000000000000000000000000000a0a0")

// fakeChain serves one log per block and records requested ranges.
type fakeChain struct {
	mu      sync.Mutex
	head    uint64
	headErr error
	ranges  [][2]uint64
}

func (c *fakeChain) GetBlocks(_ context.Context, from, to uint64) ([]events.Block, error) {
	c.mu.Lock()
	c.ranges = append(c.ranges, [2]uint64{from, to})
	c.mu.Unlock()

	var out []events.Block
	for n := from; n <= to; n++ {
		txHash := common.BigToHash(new(big.Int).SetUint64(n + 1))
		out = append(out, events.Block{
			Number:    n,
			Hash:      common.BigToHash(new(big.Int).SetUint64(n + 1_000_000)),
			Timestamp: time.Unix(int64(n)*12, 0).UTC(), //nolint:gosec
			Transactions: []events.Transaction{{
				Hash: txHash,
				Logs: []types.Log{{Address: testToken, Topics: []common.Hash{{0x01}}, BlockNumber: n, TxHash: txHash}},
			}},
		})
	}
	return out, nil
}

func (c *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, c.headErr
}

func (c *fakeChain) setHead(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = n
}

func (c *fakeChain) Ranges() [][2]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][2]uint64(nil), c.ranges...)
}

type transferParser struct{}

func (transferParser) ParseLog(l types.Log, tx events.Transaction, b events.Block) (*events.ParsedEvent, error) {
	return &events.ParsedEvent{
		ID:              events.EventID(tx.Hash, l.Index),
		ChainID:         "1",
		BlockNumber:     b.Number,
		BlockHash:       b.Hash,
		TransactionHash: tx.Hash,
		LogIndex:        l.Index,
		Address:         l.Address,
		Topics:          l.Topics,
		EventName:       "Transfer",
		Timestamp:       b.Timestamp,
		Status:          events.StatusConfirmed,
	}, nil
}

type failingSink struct{}

func (failingSink) StoreEvents(context.Context, []*events.ParsedEvent) (int, error) {
	return 0, errors.New("storage unavailable")
}

func TestFollower_Poll(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{head: 100}
	idx := eventindex.New(eventindex.Config{}, nil, nil, nil)
	f := NewFollower(FollowerConfig{Confirmations: 2, MaxBlocksPerPoll: 10}, chain, transferParser{}, idx, nil, nil)

	// the first poll starts at the confirmed head
	n, err := f.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, [][2]uint64{{98, 98}}, chain.Ranges())

	// nothing new until the head moves
	n, err = f.Poll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, chain.Ranges(), 1)

	chain.setHead(150)
	n, err = f.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, [2]uint64{99, 108}, chain.Ranges()[1])

	status := f.Status()
	require.NotNil(t, status.LastBlock)
	require.Equal(t, uint64(108), *status.LastBlock)
	require.Equal(t, uint64(150), status.Head)
	require.Equal(t, 11, status.EventsIndexed)
	require.Equal(t, 11, idx.Count())
}

func TestFollower_HeadBelowConfirmations(t *testing.T) {
	chain := &fakeChain{head: 3}
	f := NewFollower(FollowerConfig{Confirmations: 12}, chain, transferParser{}, failingSink{}, nil, nil)

	n, err := f.Poll(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, chain.Ranges())
	require.Nil(t, f.Status().LastBlock)
}

func TestFollower_IndexFailureKeepsPosition(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{head: 20}
	cursors := &MemoryCursor{}
	require.NoError(t, cursors.Save(ctx, Cursor{LastBlock: 10}))

	f := NewFollower(FollowerConfig{}, chain, transferParser{}, failingSink{}, cursors, nil)

	_, err := f.Poll(ctx)
	require.ErrorContains(t, err, "storage unavailable")

	c, err := cursors.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(10), c.LastBlock)

	status := f.Status()
	require.Equal(t, 1, status.Errors)
	require.Contains(t, status.LastError, "failed to index blocks 11-20")
}

func TestFollower_HeadError(t *testing.T) {
	chain := &fakeChain{headErr: errors.New("connection refused")}
	f := NewFollower(FollowerConfig{}, chain, transferParser{}, failingSink{}, nil, nil)

	_, err := f.Poll(context.Background())
	require.ErrorContains(t, err, "failed to get chain head")
	require.Equal(t, 1, f.Status().Errors)
}

func TestFollower_ResumesFromSQLiteCursor(t *testing.T) {
	ctx := context.Background()

	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "live.db"))
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, migrations.Apply(logger.NewNopLogger(), sqlDB))

	cursors := NewSQLiteCursor(sqlDB, nil, nil)
	c, err := cursors.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, c)

	require.NoError(t, cursors.Save(ctx, Cursor{LastBlock: 50, EventsIndexed: 7, UpdatedAt: time.Now()}))

	chain := &fakeChain{head: 55}
	idx := eventindex.New(eventindex.Config{}, nil, nil, nil)
	f := NewFollower(FollowerConfig{}, chain, transferParser{}, idx, cursors, nil)

	n, err := f.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, [][2]uint64{{51, 55}}, chain.Ranges())

	c, err = cursors.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(55), c.LastBlock)
	require.Equal(t, 12, c.EventsIndexed)
	require.Equal(t, common.BigToHash(big.NewInt(55+1_000_000)), c.LastBlockHash)
}

func TestFollower_RunDrainsBacklog(t *testing.T) {
	chain := &fakeChain{head: 30}
	cursors := &MemoryCursor{}
	require.NoError(t, cursors.Save(context.Background(), Cursor{}))

	idx := eventindex.New(eventindex.Config{}, nil, nil, nil)
	f := NewFollower(FollowerConfig{PollInterval: time.Hour, MaxBlocksPerPoll: 10}, chain, transferParser{}, idx, cursors, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool {
		last := f.Status().LastBlock
		return last != nil && *last == 30
	}, time.Second, 5*time.Millisecond)
	require.True(t, f.Status().Running)
	require.Equal(t, [][2]uint64{{1, 10}, {11, 20}, {21, 30}}, chain.Ranges())
	require.Equal(t, 30, idx.Count())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.False(t, f.Status().Running)
}
