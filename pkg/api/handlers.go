package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/eventindex"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/manager"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

const (
	maxPageLimit   = 1000
	maxImportBytes = 64 << 20
)

// Handler handles HTTP requests for the API.
type Handler struct {
	manager *manager.Manager
	log     *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(m *manager.Manager, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{
		manager: m,
		log:     log,
	}
}

// Health returns the health status of the index and its data source.
// @Summary Health check
// @Description Check the chain data source and the consistency of the search index
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Healthy"
// @Failure 503 {object} HealthResponse "Unhealthy"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Overview:  h.manager.Overview(),
	}

	status := http.StatusOK
	if err := h.manager.Health(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, response)
}

// GetOverview returns counters of the index, the replay engine and the live follower.
// @Summary Overview
// @Tags Health
// @Produce json
// @Success 200 {object} manager.Overview
// @Router /overview [get]
func (h *Handler) GetOverview(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Overview())
}

// SearchEvents searches indexed events.
// @Summary Search events
// @Description Search indexed events with filtering, free text query, pagination and sorting
// @Tags Events
// @Produce json
// @Param event_name query string false "Exact event name"
// @Param chain_id query string false "Chain id"
// @Param address query string false "Contract or participant address"
// @Param from_block query integer false "Lowest block number"
// @Param to_block query integer false "Highest block number"
// @Param from_time query string false "Earliest timestamp (RFC3339 or unix)"
// @Param to_time query string false "Latest timestamp (RFC3339 or unix)"
// @Param topics query string false "Comma separated topics that must all be present"
// @Param q query string false "Free text query"
// @Param limit query int false "Maximum number of events to return" default(100)
// @Param offset query int false "Number of events to skip" default(0)
// @Param sort_by query string false "Sort field" Enums(timestamp, blockNumber, eventName)
// @Param sort_order query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} EventResponse "List of events with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Router /events [get]
func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	idx := h.manager.Indexer()
	result := idx.Search(filter)

	limit := filter.Limit
	if limit == 0 {
		limit = idx.DefaultLimit()
	}

	respondJSON(w, http.StatusOK, EventResponse{
		Events: result.Events,
		Pagination: PaginationResult{
			Total:   result.Total,
			Limit:   limit,
			Offset:  filter.Offset,
			HasMore: result.HasMore,
		},
	})
}

// GetEvent returns one event by id.
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} events.IndexedEvent
// @Failure 404 {object} ErrorResponse "Event not found"
// @Router /events/{id} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.manager.Indexer().GetEvent(r.PathValue("id"))
	if err != nil {
		h.respondIndexError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// MarkProcessed records that a consumer handled the event.
// @Summary Mark event processed
// @Tags Events
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} events.IndexedEvent
// @Failure 404 {object} ErrorResponse "Event not found"
// @Router /events/{id}/processed [post]
func (h *Handler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	ev, err := h.manager.Indexer().MarkProcessed(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondIndexError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// RecordRetry increments the retry counter of an event.
// @Summary Record event retry
// @Tags Events
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} events.IndexedEvent
// @Failure 404 {object} ErrorResponse "Event not found"
// @Router /events/{id}/retry [post]
func (h *Handler) RecordRetry(w http.ResponseWriter, r *http.Request) {
	ev, err := h.manager.Indexer().RecordRetry(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondIndexError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// UpdateStatus sets the confirmation status of an event.
// @Summary Update event status
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event id"
// @Param body body StatusUpdateRequest true "New status"
// @Success 200 {object} events.IndexedEvent
// @Failure 400 {object} ErrorResponse "Invalid status"
// @Failure 404 {object} ErrorResponse "Event not found"
// @Router /events/{id}/status [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Status {
	case events.StatusPending, events.StatusConfirmed, events.StatusFinalized, events.StatusFailed:
	default:
		respondError(w, http.StatusBadRequest, "status must be one of: pending, confirmed, finalized, failed")
		return
	}

	ev, err := h.manager.Indexer().UpdateStatus(r.Context(), r.PathValue("id"), req.Status, req.Confirmations)
	if err != nil {
		h.respondIndexError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// EventsByTransaction returns every event emitted by a transaction.
// @Summary Events by transaction
// @Tags Lookups
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} EventListResponse
// @Router /transactions/{hash}/events [get]
func (h *Handler) EventsByTransaction(w http.ResponseWriter, r *http.Request) {
	respondEventList(w, h.manager.Indexer().EventsByTransaction(r.PathValue("hash")))
}

// EventsByAddress returns the newest events emitted by a contract.
// @Summary Events by address
// @Tags Lookups
// @Produce json
// @Param address path string true "Contract address"
// @Param limit query int false "Maximum number of events" default(100)
// @Success 200 {object} EventListResponse
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Router /addresses/{address}/events [get]
func (h *Handler) EventsByAddress(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	idx := h.manager.Indexer()
	if limit == 0 {
		limit = idx.DefaultLimit()
	}
	respondEventList(w, idx.EventsByAddress(r.PathValue("address"), limit))
}

// EventsByName returns the newest events with a given name.
// @Summary Events by name
// @Tags Lookups
// @Produce json
// @Param name path string true "Event name"
// @Param limit query int false "Maximum number of events" default(100)
// @Success 200 {object} EventListResponse
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Router /names/{name}/events [get]
func (h *Handler) EventsByName(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	idx := h.manager.Indexer()
	if limit == 0 {
		limit = idx.DefaultLimit()
	}
	respondEventList(w, idx.EventsByName(r.PathValue("name"), limit))
}

// EventsByBlockRange returns events in an inclusive block range.
// @Summary Events by block range
// @Tags Lookups
// @Produce json
// @Param from path integer true "First block"
// @Param to path integer true "Last block"
// @Success 200 {object} EventListResponse
// @Failure 400 {object} ErrorResponse "Invalid range"
// @Router /blocks/{from}/{to}/events [get]
func (h *Handler) EventsByBlockRange(w http.ResponseWriter, r *http.Request) {
	fromStr, toStr := r.PathValue("from"), r.PathValue("to")
	from, err := common.ParseUint64orHex(&fromStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from block")
		return
	}
	to, err := common.ParseUint64orHex(&toStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to block")
		return
	}
	if from > to {
		respondError(w, http.StatusBadRequest, "from block cannot be greater than to block")
		return
	}

	respondEventList(w, h.manager.Indexer().EventsByBlockRange(from, to))
}

// EventsByTimeRange returns events in an inclusive time range.
// @Summary Events by time range
// @Tags Lookups
// @Produce json
// @Param from query string true "Start (RFC3339 or unix)"
// @Param to query string true "End (RFC3339 or unix)"
// @Success 200 {object} EventListResponse
// @Failure 400 {object} ErrorResponse "Invalid range"
// @Router /time-range/events [get]
func (h *Handler) EventsByTimeRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := common.ParseTime(q.Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid from: %v", err))
		return
	}
	to, err := common.ParseTime(q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid to: %v", err))
		return
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "from cannot be after to")
		return
	}

	respondEventList(w, h.manager.Indexer().EventsByTimeRange(from, to))
}

// GetStats returns statistics over the indexed events.
// @Summary Event statistics
// @Tags Analytics
// @Produce json
// @Param from_time query string false "Window start (RFC3339 or unix)"
// @Param to_time query string false "Window end (RFC3339 or unix)"
// @Success 200 {object} events.Statistics
// @Failure 400 {object} ErrorResponse "Invalid window"
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var window *events.TimeRange
	if from != nil || to != nil {
		window = &events.TimeRange{From: from, To: to}
	}

	respondJSON(w, http.StatusOK, h.manager.Indexer().Statistics(window))
}

// Aggregate groups events by a dimension.
// @Summary Aggregate events
// @Tags Analytics
// @Produce json
// @Param group_by query string false "Grouping dimension" Enums(eventName, chainId, address) default(eventName)
// @Param from_time query string false "Window start (RFC3339 or unix)"
// @Param to_time query string false "Window end (RFC3339 or unix)"
// @Success 200 {object} AggregateResponse
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Router /aggregate [get]
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	groupBy := events.GroupBy(r.URL.Query().Get("group_by"))
	switch groupBy {
	case "":
		groupBy = events.GroupByEventName
	case events.GroupByEventName, events.GroupByChainID, events.GroupByAddress:
	default:
		respondError(w, http.StatusBadRequest, "group_by must be one of: eventName, chainId, address")
		return
	}

	from, to, err := parseTimeWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	groups := h.manager.Indexer().Aggregate(events.AggregationSpec{
		GroupBy:  groupBy,
		FromTime: from,
		ToTime:   to,
	})
	respondJSON(w, http.StatusOK, AggregateResponse{GroupBy: groupBy, Groups: groups})
}

// Export writes every indexed event as JSON or CSV.
// @Summary Export events
// @Tags Maintenance
// @Produce json
// @Produce text/csv
// @Param format query string false "Export format" Enums(json, csv) default(json)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Invalid format"
// @Router /export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Buffer so that a failure can still be reported with a proper status.
	var buf bytes.Buffer
	if err := h.manager.Indexer().Export(&buf, format); err != nil {
		h.log.Errorf("Failed to export events: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to export events")
		return
	}

	contentType := "application/json"
	if format == eventindex.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=events.%s", format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.Warnw("failed to write export", "error", err)
	}
}

// Import loads events exported by Export.
// @Summary Import events
// @Tags Maintenance
// @Accept json
// @Accept text/csv
// @Produce json
// @Param format query string false "Import format" Enums(json, csv) default(json)
// @Param replace query bool false "Clear the index before importing"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} ErrorResponse "Invalid payload"
// @Router /import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts eventindex.ImportOptions
	if v := r.URL.Query().Get("replace"); v != "" {
		replace, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid replace: must be a boolean")
			return
		}
		opts.Replace = replace
	}

	idx := h.manager.Indexer()
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	n, err := idx.Import(r.Context(), body, format, opts)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("import failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, ImportResponse{Imported: n, Total: idx.Count()})
}

// Cleanup removes events older than a cutoff.
// @Summary Remove old events
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param body body CleanupRequest true "Cutoff as an absolute time or an age such as 720h"
// @Success 200 {object} CleanupResponse
// @Failure 400 {object} ErrorResponse "Invalid cutoff"
// @Router /maintenance/cleanup [post]
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cutoff time.Time
	switch {
	case req.Before != "" && req.OlderThan != "":
		respondError(w, http.StatusBadRequest, "only one of before and older_than may be set")
		return
	case req.Before != "":
		t, err := common.ParseTime(req.Before)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid before: %v", err))
			return
		}
		cutoff = t
	case req.OlderThan != "":
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "invalid older_than: must be a positive duration")
			return
		}
		cutoff = time.Now().Add(-d)
	default:
		respondError(w, http.StatusBadRequest, "one of before and older_than is required")
		return
	}

	removed, err := h.manager.Indexer().ClearOldEvents(r.Context(), cutoff)
	if err != nil {
		h.log.Errorf("Failed to clear old events: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to clear old events")
		return
	}

	respondJSON(w, http.StatusOK, CleanupResponse{Removed: removed, Cutoff: cutoff})
}

// Rebuild recomputes the search terms of every event.
// @Summary Rebuild search index
// @Tags Maintenance
// @Produce json
// @Success 200 {object} RebuildResponse
// @Router /maintenance/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, _ *http.Request) {
	idx := h.manager.Indexer()
	terms := idx.RebuildSearchIndex()
	respondJSON(w, http.StatusOK, RebuildResponse{Events: idx.Count(), Terms: terms})
}

// Consistency verifies the search index against the primary store.
// @Summary Check index consistency
// @Tags Maintenance
// @Produce json
// @Success 200 {object} ConsistencyResponse
// @Router /maintenance/consistency [get]
func (h *Handler) Consistency(w http.ResponseWriter, _ *http.Request) {
	resp := ConsistencyResponse{Consistent: true}
	if err := h.manager.Indexer().CheckConsistency(); err != nil {
		resp.Consistent = false
		resp.Error = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondIndexError(w http.ResponseWriter, err error) {
	if errors.Is(err, events.ErrEventNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Errorf("Index operation failed: %v", err)
	respondError(w, http.StatusInternalServerError, err.Error())
}

// parseSearchFilter parses HTTP query parameters into a search filter.
func parseSearchFilter(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	f := events.Filter{
		EventName: q.Get("event_name"),
		ChainID:   q.Get("chain_id"),
		Address:   q.Get("address"),
		Query:     q.Get("q"),
	}

	limit, err := parseLimit(r)
	if err != nil {
		return f, err
	}
	if q.Get("limit") != "" {
		f.Limit = limit
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return f, fmt.Errorf("invalid offset: must be non-negative")
		}
		f.Offset = offset
	}

	if v := q.Get("from_block"); v != "" {
		fromBlock, err := common.ParseUint64orHex(&v)
		if err != nil {
			return f, fmt.Errorf("invalid from_block")
		}
		f.FromBlock = &fromBlock
	}

	if v := q.Get("to_block"); v != "" {
		toBlock, err := common.ParseUint64orHex(&v)
		if err != nil {
			return f, fmt.Errorf("invalid to_block")
		}
		f.ToBlock = &toBlock
	}

	if f.FromBlock != nil && f.ToBlock != nil && *f.FromBlock > *f.ToBlock {
		return f, fmt.Errorf("from_block cannot be greater than to_block")
	}

	if f.FromTime, f.ToTime, err = parseTimeWindow(r); err != nil {
		return f, err
	}

	if topics := q.Get("topics"); topics != "" {
		for _, t := range strings.Split(topics, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Topics = append(f.Topics, t)
			}
		}
	}

	if sortBy := q.Get("sort_by"); sortBy != "" {
		switch events.SortField(sortBy) {
		case events.SortByTimestamp, events.SortByBlockNumber, events.SortByEventName:
			f.SortBy = events.SortField(sortBy)
		default:
			return f, fmt.Errorf("invalid sort_by: must be 'timestamp', 'blockNumber' or 'eventName'")
		}
	}

	if sortOrder := q.Get("sort_order"); sortOrder != "" {
		sortOrder = common.ToLowerWithTrim(sortOrder)
		if sortOrder != string(events.SortAsc) && sortOrder != string(events.SortDesc) {
			return f, fmt.Errorf("invalid sort_order: must be 'asc' or 'desc'")
		}
		f.SortOrder = events.SortOrder(sortOrder)
	}

	return f, nil
}

// parseLimit returns the limit query parameter, or 0 when absent.
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return 0, fmt.Errorf("invalid limit: must be between 1 and %d", maxPageLimit)
	}
	return limit, nil
}

func parseTimeWindow(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("from_time"); v != "" {
		t, err := common.ParseTime(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from_time: %w", err)
		}
		from = &t
	}
	if v := q.Get("to_time"); v != "" {
		t, err := common.ParseTime(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to_time: %w", err)
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("from_time cannot be after to_time")
	}
	return from, to, nil
}

func parseFormat(r *http.Request) (eventindex.Format, error) {
	return eventindex.ParseFormat(r.URL.Query().Get("format"))
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respondEventList(w http.ResponseWriter, evs []*events.IndexedEvent) {
	if evs == nil {
		evs = []*events.IndexedEvent{}
	}
	respondJSON(w, http.StatusOK, EventListResponse{Events: evs, Count: len(evs)})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	// Headers are sent; nothing useful can be done with a write error
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}

// respondValidation sends a 400 listing every violated rule.
func respondValidation(w http.ResponseWriter, message string, violations []string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: message,
		Code:    http.StatusBadRequest,
		Errors:  violations,
	})
}
