// Package events defines the event model shared by the indexer, the replay engine and their collaborators.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// ErrEventNotFound is returned when an event id is not present in the index or storage.
	ErrEventNotFound = errors.New("event not found")
	// ErrEmptyEventID is returned when an event without an id is ingested.
	ErrEmptyEventID = errors.New("event id must not be empty")
)

// Status is the confirmation status of an event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
	StatusFailed    Status = "failed"
)

// EventID derives the unique id of a log from its transaction hash and log index.
func EventID(txHash common.Hash, logIndex uint) string {
	return fmt.Sprintf("%s-%d", txHash.Hex(), logIndex)
}

// ParsedEvent is a decoded log together with its chain coordinates.
// Only Status and Confirmations change after creation.
type ParsedEvent struct {
	ID              string         `json:"id"`
	ChainID         string         `json:"chainId"`
	BlockNumber     uint64         `json:"blockNumber"`
	BlockHash       common.Hash    `json:"blockHash"`
	TransactionHash common.Hash    `json:"transactionHash"`
	LogIndex        uint           `json:"logIndex"`
	Address         common.Address `json:"address"`
	Topics          []common.Hash  `json:"topics"`
	Data            hexutil.Bytes  `json:"data"`
	EventName       string         `json:"eventName"`
	Params          map[string]any `json:"params,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Status          Status         `json:"status"`
	Confirmations   uint64         `json:"confirmations"`
}

// Metadata is the mutable bookkeeping attached to an indexed event.
type Metadata struct {
	Processed  bool           `json:"processed"`
	RetryCount int            `json:"retryCount"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// IndexedEvent is a ParsedEvent plus indexing metadata.
type IndexedEvent struct {
	ParsedEvent

	IndexedAt   time.Time  `json:"indexedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	SearchTerms []string   `json:"searchTerms"`
	Metadata    Metadata   `json:"metadata"`
}

// Clone returns a deep enough copy of the event for handing out to callers:
// slices and maps owned by the index are not shared.
func (e *IndexedEvent) Clone() *IndexedEvent {
	if e == nil {
		return nil
	}

	c := *e
	c.Topics = append([]common.Hash(nil), e.Topics...)
	c.Data = append(hexutil.Bytes(nil), e.Data...)
	c.SearchTerms = append([]string(nil), e.SearchTerms...)
	if e.Params != nil {
		c.Params = make(map[string]any, len(e.Params))
		for k, v := range e.Params {
			c.Params[k] = v
		}
	}
	if e.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]any, len(e.Metadata.Extra))
		for k, v := range e.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	if e.ProcessedAt != nil {
		t := *e.ProcessedAt
		c.ProcessedAt = &t
	}

	return &c
}
