// Package replay holds the public types of the historical replay engine.
package replay

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultBatchSize is the number of blocks per batch when none is configured.
	DefaultBatchSize = 1000
	// MaxBatchSize is the hard cap on blocks per batch.
	MaxBatchSize = 10000
	// MaxDelay is the largest accepted inter-batch delay.
	MaxDelay = 60 * time.Second
)

var (
	// ErrReplayRunning is returned when a session is started while another one is active.
	ErrReplayRunning = errors.New("a replay is already running")
	// ErrNoActiveReplay is returned by control operations when no session is active.
	ErrNoActiveReplay = errors.New("no active replay")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("replay session not found")
	// ErrNothingToResume is returned when no unfinished checkpoint exists.
	ErrNothingToResume = errors.New("no replay checkpoint to resume")
)

// Status is the state of a replay session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Active reports whether the status belongs to a session that has not finished.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Config describes one replay session.
// Block bounds take precedence over time bounds; a nil ToBlock and ToTime mean "latest".
type Config struct {
	FromBlock *int64     `json:"fromBlock,omitempty"`
	ToBlock   *int64     `json:"toBlock,omitempty"`
	FromTime  *time.Time `json:"fromTime,omitempty"`
	ToTime    *time.Time `json:"toTime,omitempty"`

	// EventNames and Addresses are allow-lists; empty means everything.
	EventNames []string `json:"eventNames,omitempty"`
	Addresses  []string `json:"addresses,omitempty"`

	BatchSize    int           `json:"batchSize"`
	Delay        time.Duration `json:"delay"`
	SkipExisting bool          `json:"skipExisting"`
}

// DefaultConfig returns a config with the default batch size and no bounds.
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize}
}

// Validate returns every rule the config violates, or nil.
func (c Config) Validate() []string {
	var errs []string

	if c.FromBlock != nil && *c.FromBlock < 0 {
		errs = append(errs, "fromBlock must be non-negative")
	}
	if c.ToBlock != nil && *c.ToBlock < 0 {
		errs = append(errs, "toBlock must be non-negative")
	}
	if c.FromBlock != nil && c.ToBlock != nil && *c.FromBlock > *c.ToBlock {
		errs = append(errs, "fromBlock must be less than or equal to toBlock")
	}
	if c.FromTime != nil && c.ToTime != nil && !c.FromTime.Before(*c.ToTime) {
		errs = append(errs, "fromTime must be before toTime")
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Sprintf("batchSize must be between 1 and %d", MaxBatchSize))
	}
	if c.Delay < 0 || c.Delay > MaxDelay {
		errs = append(errs, fmt.Sprintf("delay must be between 0 and %d ms", MaxDelay.Milliseconds()))
	}

	return errs
}

// ValidationError wraps the violations of an invalid config.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid replay config: " + strings.Join(e.Errors, "; ")
}

// Progress is a snapshot of a session's position.
type Progress struct {
	CurrentBlock        uint64     `json:"currentBlock"`
	FromBlock           uint64     `json:"fromBlock"`
	ToBlock             uint64     `json:"toBlock"`
	TotalBlocks         uint64     `json:"totalBlocks"`
	ProcessedBlocks     uint64     `json:"processedBlocks"`
	Percentage          int        `json:"percentage"`
	StartTime           time.Time  `json:"startTime"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
}

// Statistics accumulates per-session counters.
type Statistics struct {
	BlocksProcessed      uint64         `json:"blocksProcessed"`
	TotalEventsFound     int            `json:"totalEventsFound"`
	EventsProcessed      int            `json:"eventsProcessed"`
	EventsSkipped        int            `json:"eventsSkipped"`
	ErrorCount           int            `json:"errorCount"`
	EventsByType         map[string]int `json:"eventsByType"`
	Duration             time.Duration  `json:"duration"`
	AverageBlockDuration time.Duration  `json:"averageBlockDuration"`
	EventsPerBlock       float64        `json:"eventsPerBlock"`
	EventsPerSecond      float64        `json:"eventsPerSecond"`
}

// BatchResult reports the outcome of one batch, including the retries it took.
type BatchResult struct {
	FromBlock      uint64        `json:"fromBlock"`
	ToBlock        uint64        `json:"toBlock"`
	BlocksFetched  int           `json:"blocksFetched"`
	EventsFound    int           `json:"eventsFound"`
	EventsIndexed  int           `json:"eventsIndexed"`
	EventsSkipped  int           `json:"eventsSkipped"`
	Errors         int           `json:"errors"`
	FetchAttempts  int           `json:"fetchAttempts"`
	UsedBlockFetch bool          `json:"usedBlockFetch"`
	Duration       time.Duration `json:"duration"`
}

// Session is the full state of one replay session.
type Session struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	Config      Config       `json:"config"`
	Progress    Progress     `json:"progress"`
	Statistics  Statistics   `json:"statistics"`
	LastBatch   *BatchResult `json:"lastBatch,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  *time.Time   `json:"finishedAt,omitempty"`
	ResumedFrom string       `json:"resumedFrom,omitempty"`
}

// Update is the payload of every replay notification.
type Update struct {
	SessionID  string       `json:"sessionId"`
	Status     Status       `json:"status"`
	Config     *Config      `json:"config,omitempty"`
	Progress   *Progress    `json:"progress,omitempty"`
	Statistics *Statistics  `json:"statistics,omitempty"`
	Batch      *BatchResult `json:"batch,omitempty"`
	Error      string       `json:"error,omitempty"`
}
