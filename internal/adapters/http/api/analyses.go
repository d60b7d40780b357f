// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/domain/model"
)

// AnalysesHandler handles analysis submission and retrieval.
type AnalysesHandler struct {
	deps Dependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

// HandlePostAnalysis handles POST /analyses requests.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.Submit(r.Context(), req.toModel())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", newKind(op, ErrBackpressure))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// analysisResponse is the read shape for GET /analyses/{id}. Progress
// is present only while the run is in flight.
type analysisResponse struct {
	model.AnalysisRecord
	Progress *service.Progress `json:"progress,omitempty"`
}

// HandleGetAnalysis handles GET /analyses/{analysis_id} requests.
func (h *AnalysesHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/analyses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	rec, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	resp := analysisResponse{AnalysisRecord: rec}
	if rec.Status == model.StatusRunning {
		if p, ok := h.deps.Progress(id); ok {
			resp.Progress = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
