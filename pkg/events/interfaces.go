package events

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block is a block with the logs of its transactions, as returned by a DataSource.
type Block struct {
	Number       uint64        `json:"number"`
	Hash         common.Hash   `json:"hash"`
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction groups the logs emitted by one transaction.
type Transaction struct {
	Hash common.Hash `json:"hash"`
	Logs []types.Log `json:"logs"`
}

// DataSource supplies blocks and the chain head.
type DataSource interface {
	// GetBlocks returns blocks in [from, to] in ascending order.
	GetBlocks(ctx context.Context, from, to uint64) ([]Block, error)
	// LatestBlockNumber returns the current chain head.
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Parser decodes a raw log into a ParsedEvent.
// A nil event with a nil error means the log is not a recognized event.
type Parser interface {
	ParseLog(log types.Log, tx Transaction, block Block) (*ParsedEvent, error)
}

// Storage is the persistence hook behind the in-memory index.
type Storage interface {
	// Put inserts or overwrites events by id.
	Put(ctx context.Context, evs ...*IndexedEvent) error
	// Get returns ErrEventNotFound for unknown ids.
	Get(ctx context.Context, id string) (*IndexedEvent, error)
	// Scan calls fn for every stored event; a non-nil error from fn stops the scan.
	Scan(ctx context.Context, fn func(*IndexedEvent) error) error
	// Delete removes events by id; unknown ids are ignored.
	Delete(ctx context.Context, ids ...string) error
	Close() error
}

// Topic names a notification stream.
type Topic string

const (
	TopicIndexed      Topic = "indexed"
	TopicBatchIndexed Topic = "batch-indexed"
	TopicProcessed    Topic = "processed"
	TopicRemoved      Topic = "removed"

	TopicReplayStarted   Topic = "replay.started"
	TopicReplayProgress  Topic = "replay.progress"
	TopicReplayPaused    Topic = "replay.paused"
	TopicReplayResumed   Topic = "replay.resumed"
	TopicReplayCompleted Topic = "replay.completed"
	TopicReplayStopped   Topic = "replay.stopped"
	TopicReplayError     Topic = "replay.error"
)

// AllTopics lists every topic a component may publish.
var AllTopics = []Topic{
	TopicIndexed, TopicBatchIndexed, TopicProcessed, TopicRemoved,
	TopicReplayStarted, TopicReplayProgress, TopicReplayPaused, TopicReplayResumed,
	TopicReplayCompleted, TopicReplayStopped, TopicReplayError,
}

// Notification is delivered to subscribers.
type Notification struct {
	Topic     Topic     `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Publisher publishes notifications without acknowledgment.
type Publisher interface {
	Publish(topic Topic, payload any)
}
