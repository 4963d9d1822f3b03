package api

import (
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/manager"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

// EventResponse is one page of indexed events.
type EventResponse struct {
	Events     []*events.IndexedEvent `json:"events"`
	Pagination PaginationResult       `json:"pagination"`
}

// EventListResponse is an unpaginated list of events returned by point lookups.
type EventListResponse struct {
	Events []*events.IndexedEvent `json:"events"`
	Count  int                    `json:"count"`
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Code    int      `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Error     string           `json:"error,omitempty"`
	Overview  manager.Overview `json:"overview"`
}

// AggregateResponse holds the groups of an aggregation.
type AggregateResponse struct {
	GroupBy events.GroupBy          `json:"group_by"`
	Groups  []events.AggregateGroup `json:"groups"`
}

// StatusUpdateRequest changes the confirmation status of an event.
type StatusUpdateRequest struct {
	Status        events.Status `json:"status"`
	Confirmations uint64        `json:"confirmations"`
}

// CleanupRequest removes events older than a cutoff.
// Exactly one of Before and OlderThan must be set.
type CleanupRequest struct {
	Before    string `json:"before,omitempty"`
	OlderThan string `json:"older_than,omitempty"`
}

// CleanupResponse reports a retention cleanup.
type CleanupResponse struct {
	Removed int       `json:"removed"`
	Cutoff  time.Time `json:"cutoff"`
}

// RebuildResponse reports a search index rebuild.
type RebuildResponse struct {
	Events int `json:"events"`
	Terms  int `json:"terms"`
}

// ConsistencyResponse reports an index consistency check.
type ConsistencyResponse struct {
	Consistent bool   `json:"consistent"`
	Error      string `json:"error,omitempty"`
}

// ImportResponse reports an import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// ReplayRequest configures a replay session. Unset fields take the engine defaults.
// Times accept RFC3339 or unix seconds.
type ReplayRequest struct {
	FromBlock    *int64   `json:"from_block,omitempty"`
	ToBlock      *int64   `json:"to_block,omitempty"`
	FromTime     *string  `json:"from_time,omitempty"`
	ToTime       *string  `json:"to_time,omitempty"`
	EventNames   []string `json:"event_names,omitempty"`
	Addresses    []string `json:"addresses,omitempty"`
	BatchSize    *int     `json:"batch_size,omitempty"`
	DelayMs      *int64   `json:"delay_ms,omitempty"`
	SkipExisting *bool    `json:"skip_existing,omitempty"`
}

// ReplayStateResponse is returned by the replay control endpoints.
type ReplayStateResponse struct {
	Status  pkgreplay.Status   `json:"status"`
	Session *pkgreplay.Session `json:"session,omitempty"`
}

// ReplayHistoryResponse lists finished sessions, newest first.
type ReplayHistoryResponse struct {
	Sessions []pkgreplay.Session `json:"sessions"`
}
