package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/common"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

// toConfig overlays the request on the engine defaults.
func (req ReplayRequest) toConfig(defaults pkgreplay.Config) (pkgreplay.Config, []string) {
	cfg := defaults
	var errs []string

	cfg.FromBlock = req.FromBlock
	cfg.ToBlock = req.ToBlock
	cfg.FromTime, cfg.ToTime = nil, nil

	if req.FromTime != nil {
		t, err := common.ParseTime(*req.FromTime)
		if err != nil {
			errs = append(errs, fmt.Sprintf("from_time: %v", err))
		} else {
			cfg.FromTime = &t
		}
	}
	if req.ToTime != nil {
		t, err := common.ParseTime(*req.ToTime)
		if err != nil {
			errs = append(errs, fmt.Sprintf("to_time: %v", err))
		} else {
			cfg.ToTime = &t
		}
	}

	if req.EventNames != nil {
		cfg.EventNames = req.EventNames
	}
	if req.Addresses != nil {
		cfg.Addresses = req.Addresses
	}
	if req.BatchSize != nil {
		cfg.BatchSize = *req.BatchSize
	}
	if req.DelayMs != nil {
		// values past the Duration range would wrap into the accepted window
		ms := *req.DelayMs
		if ms < math.MinInt64/int64(time.Millisecond) || ms > math.MaxInt64/int64(time.Millisecond) {
			errs = append(errs, fmt.Sprintf("delay must be between 0 and %d ms", pkgreplay.MaxDelay.Milliseconds()))
		} else {
			cfg.Delay = time.Duration(ms) * time.Millisecond
		}
	}
	if req.SkipExisting != nil {
		cfg.SkipExisting = *req.SkipExisting
	}

	return cfg, errs
}

// GetReplay returns the state of the latest replay session.
// @Summary Replay state
// @Tags Replay
// @Produce json
// @Success 200 {object} ReplayStateResponse
// @Router /replay [get]
func (h *Handler) GetReplay(w http.ResponseWriter, _ *http.Request) {
	engine := h.manager.Replay()
	respondJSON(w, http.StatusOK, ReplayStateResponse{
		Status:  engine.Status(),
		Session: engine.Current(),
	})
}

// StartReplay starts a replay session in the background.
// @Summary Start replay
// @Description Start replaying historical blocks. Unset fields take the configured defaults.
// @Tags Replay
// @Accept json
// @Produce json
// @Param body body ReplayRequest true "Replay configuration"
// @Success 202 {object} ReplayStateResponse
// @Failure 400 {object} ErrorResponse "Invalid configuration"
// @Failure 409 {object} ErrorResponse "A replay is already running"
// @Failure 502 {object} ErrorResponse "Block range could not be resolved"
// @Router /replay [post]
func (h *Handler) StartReplay(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine := h.manager.Replay()
	cfg, errs := req.toConfig(engine.DefaultConfig())
	if len(errs) > 0 {
		respondValidation(w, "invalid replay configuration", errs)
		return
	}

	session, err := engine.Start(r.Context(), cfg)
	if err != nil {
		h.respondReplayError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, ReplayStateResponse{Status: session.Status, Session: session})
}

// ResumeCheckpoint restarts the latest unfinished session from its checkpoint.
// @Summary Resume from checkpoint
// @Tags Replay
// @Produce json
// @Success 202 {object} ReplayStateResponse
// @Failure 404 {object} ErrorResponse "No checkpoint to resume"
// @Failure 409 {object} ErrorResponse "A replay is already running"
// @Router /replay/checkpoint [post]
func (h *Handler) ResumeCheckpoint(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Replay().ResumeFromCheckpoint(r.Context())
	if err != nil {
		h.respondReplayError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, ReplayStateResponse{Status: session.Status, Session: session})
}

// PauseReplay holds the active session before its next batch.
// @Summary Pause replay
// @Tags Replay
// @Produce json
// @Success 200 {object} ReplayStateResponse
// @Failure 409 {object} ErrorResponse "No active replay"
// @Router /replay/pause [post]
func (h *Handler) PauseReplay(w http.ResponseWriter, _ *http.Request) {
	h.control(w, h.manager.Replay().Pause)
}

// ResumeReplay continues a paused session.
// @Summary Resume replay
// @Tags Replay
// @Produce json
// @Success 200 {object} ReplayStateResponse
// @Failure 409 {object} ErrorResponse "No active replay"
// @Router /replay/resume [post]
func (h *Handler) ResumeReplay(w http.ResponseWriter, _ *http.Request) {
	h.control(w, h.manager.Replay().Resume)
}

// StopReplay ends the active session.
// @Summary Stop replay
// @Tags Replay
// @Produce json
// @Success 200 {object} ReplayStateResponse
// @Failure 409 {object} ErrorResponse "No active replay"
// @Router /replay/stop [post]
func (h *Handler) StopReplay(w http.ResponseWriter, _ *http.Request) {
	h.control(w, h.manager.Replay().Stop)
}

func (h *Handler) control(w http.ResponseWriter, op func() error) {
	if err := op(); err != nil {
		h.respondReplayError(w, err)
		return
	}

	engine := h.manager.Replay()
	respondJSON(w, http.StatusOK, ReplayStateResponse{
		Status:  engine.Status(),
		Session: engine.Current(),
	})
}

// GetReplayProgress returns the position of the latest session.
// @Summary Replay progress
// @Tags Replay
// @Produce json
// @Success 200 {object} pkgreplay.Progress
// @Failure 404 {object} ErrorResponse "No replay has run"
// @Router /replay/progress [get]
func (h *Handler) GetReplayProgress(w http.ResponseWriter, _ *http.Request) {
	p := h.manager.Replay().Progress()
	if p == nil {
		respondError(w, http.StatusNotFound, "no replay has run")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetReplayStatistics returns the counters of the latest session.
// @Summary Replay statistics
// @Tags Replay
// @Produce json
// @Success 200 {object} pkgreplay.Statistics
// @Failure 404 {object} ErrorResponse "No replay has run"
// @Router /replay/statistics [get]
func (h *Handler) GetReplayStatistics(w http.ResponseWriter, _ *http.Request) {
	s := h.manager.Replay().Statistics()
	if s == nil {
		respondError(w, http.StatusNotFound, "no replay has run")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GetReplayHistory lists finished sessions, newest first.
// @Summary Replay history
// @Tags Replay
// @Produce json
// @Success 200 {object} ReplayHistoryResponse
// @Router /replay/history [get]
func (h *Handler) GetReplayHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, ReplayHistoryResponse{Sessions: h.manager.Replay().History()})
}

// GetReplaySession returns one session by id.
// @Summary Replay session
// @Tags Replay
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} pkgreplay.Session
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /replay/sessions/{id} [get]
func (h *Handler) GetReplaySession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Replay().Session(r.PathValue("id"))
	if err != nil {
		h.respondReplayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GetReplayDefaults returns the configuration new sessions start from.
// @Summary Replay defaults
// @Tags Replay
// @Produce json
// @Success 200 {object} pkgreplay.Config
// @Router /replay/defaults [get]
func (h *Handler) GetReplayDefaults(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Replay().DefaultConfig())
}

func (h *Handler) respondReplayError(w http.ResponseWriter, err error) {
	var verr *pkgreplay.ValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, "invalid replay configuration", verr.Errors)
	case errors.Is(err, pkgreplay.ErrReplayRunning), errors.Is(err, pkgreplay.ErrNoActiveReplay):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pkgreplay.ErrSessionNotFound), errors.Is(err, pkgreplay.ErrNothingToResume):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Errorf("Replay request failed: %v", err)
		respondError(w, http.StatusBadGateway, err.Error())
	}
}
