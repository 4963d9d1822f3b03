package events

import "time"

// DefaultLimit is the page size used when a filter does not set one.
const DefaultLimit = 100

// SortField selects the key search results are ordered by.
type SortField string

const (
	SortByTimestamp   SortField = "timestamp"
	SortByBlockNumber SortField = "blockNumber"
	SortByEventName   SortField = "eventName"
)

// SortOrder is the direction of the ordering.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter is a conjunction of optional predicates plus pagination and sort.
// Zero values mean "no constraint".
type Filter struct {
	EventName string     `json:"eventName,omitempty"`
	ChainID   string     `json:"chainId,omitempty"`
	Address   string     `json:"address,omitempty"`
	FromBlock *uint64    `json:"fromBlock,omitempty"`
	ToBlock   *uint64    `json:"toBlock,omitempty"`
	FromTime  *time.Time `json:"fromTime,omitempty"`
	ToTime    *time.Time `json:"toTime,omitempty"`
	// Topics must all be present in the event's topic list.
	Topics []string `json:"topics,omitempty"`
	// Query is a whitespace separated free text query; every token must be
	// a substring of at least one search term.
	Query string `json:"query,omitempty"`

	Offset    int       `json:"offset,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	SortBy    SortField `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// SearchResult is one page of a search.
type SearchResult struct {
	Events  []*IndexedEvent `json:"events"`
	Total   int             `json:"total"`
	HasMore bool            `json:"hasMore"`
}

// GroupBy selects the aggregation dimension.
type GroupBy string

const (
	GroupByEventName GroupBy = "eventName"
	GroupByChainID   GroupBy = "chainId"
	GroupByAddress   GroupBy = "address"
)

// AggregationSpec describes an aggregation over a time window.
type AggregationSpec struct {
	GroupBy  GroupBy    `json:"groupBy"`
	FromTime *time.Time `json:"fromTime,omitempty"`
	ToTime   *time.Time `json:"toTime,omitempty"`
}

// AggregateGroup is the result for one group key.
// TotalAmount and AverageAmount are zero when no event in the group carries a numeric amount.
type AggregateGroup struct {
	Key             string  `json:"key"`
	Count           int     `json:"count"`
	UniqueAddresses int     `json:"uniqueAddresses"`
	TotalAmount     float64 `json:"totalAmount"`
	AverageAmount   float64 `json:"averageAmount"`
}

// TimeRange bounds statistics; nil ends are open.
type TimeRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t lies inside the inclusive range.
func (r *TimeRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// AddressCount is an address and the number of events it appears in.
type AddressCount struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// Statistics summarises the indexed events.
type Statistics struct {
	TotalEvents  int            `json:"totalEvents"`
	ByEventName  map[string]int `json:"byEventName"`
	ByChain      map[string]int `json:"byChain"`
	ByHour       map[string]int `json:"byHour"`
	ByDay        map[string]int `json:"byDay"`
	TopAddresses []AddressCount `json:"topAddresses"`
}
