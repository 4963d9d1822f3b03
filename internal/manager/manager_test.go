package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/notify"
	"github.com/goran-ethernal/ChainReplay/internal/replay"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, chain *fakeChain, opts ...Option) *Manager {
	t.Helper()

	n := notify.New(nil)
	idx := eventindex.New(eventindex.Config{}, nil, n, nil)
	engine := replay.New(replay.Config{}, chain, transferParser{}, idx, nil, n, nil)
	m := New(idx, engine, n, nil, opts...)
	t.Cleanup(func() { _ = m.Close() })

	return m
}

func TestManager_ReplayAndLiveShareIndexer(t *testing.T) {
	chain := &fakeChain{head: 40}
	cursors := &MemoryCursor{}
	require.NoError(t, cursors.Save(context.Background(), Cursor{LastBlock: 30}))

	m := newTestManager(t, chain)
	follower := NewFollower(FollowerConfig{PollInterval: time.Hour}, chain, transferParser{}, m.Indexer(), cursors, nil)
	WithFollower(follower)(m)

	var indexed int
	unsubscribe := m.Subscribe(func(events.Notification) { indexed++ }, events.TopicIndexed)
	defer unsubscribe()

	from, to := int64(1), int64(30)
	s, err := m.Replay().Run(context.Background(), pkgreplay.Config{FromBlock: &from, ToBlock: &to, BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, pkgreplay.StatusCompleted, s.Status)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		return m.Indexer().Count() == 40
	}, time.Second, 5*time.Millisecond)

	o := m.Overview()
	require.Equal(t, 40, o.Events)
	require.Positive(t, o.Terms)
	require.Equal(t, pkgreplay.StatusCompleted, o.Replay)
	require.NotNil(t, o.Live)
	require.Equal(t, uint64(40), *o.Live.LastBlock)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 40, indexed)
}

func TestManager_RunWithoutWorkers(t *testing.T) {
	m := newTestManager(t, &fakeChain{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))
	require.Nil(t, m.Overview().Live)
	require.Equal(t, pkgreplay.StatusIdle, m.Overview().Replay)
}

func TestManager_Health(t *testing.T) {
	chain := &fakeChain{head: 10}
	m := newTestManager(t, chain, WithHeadCheck(chain))
	require.NoError(t, m.Health(context.Background()))

	chain.mu.Lock()
	chain.headErr = errors.New("node down")
	chain.mu.Unlock()
	require.ErrorContains(t, m.Health(context.Background()), "node down")
}

func TestManager_SubscribeWithoutNotifier(t *testing.T) {
	idx := eventindex.New(eventindex.Config{}, nil, nil, nil)
	m := New(idx, replay.New(replay.Config{}, &fakeChain{}, transferParser{}, idx, nil, nil, nil), nil, nil)

	unsubscribe := m.Subscribe(func(events.Notification) {})
	require.NotNil(t, unsubscribe)
	unsubscribe()
}
