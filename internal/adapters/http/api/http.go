// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit registers an analysis for async processing.
	// Returns ErrDuplicate on resubmission and ErrBackpressure when full.
	Submit(ctx context.Context, req model.AnalysisRequest) error

	// Get returns the stored record for an analysis id.
	Get(ctx context.Context, analysisID string) (model.AnalysisRecord, error)

	// Progress reports the live pipeline stage for a running analysis.
	Progress(analysisID string) (service.Progress, bool)
}

// Server wires HTTP routes for the analysis API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analysesHandler *AnalysesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		analysesHandler: NewAnalysesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.analysesHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("/analyses/", MetricsMiddleware(s.analysesHandler.HandleGetAnalysis, "analysis"))
}

// analysisRequest mirrors the submission schema for POST /analyses.
type analysisRequest struct {
	AnalysisID   string `json:"analysis_id"`
	VideoRef     string `json:"video_ref"`
	VideoID      string `json:"video_id"`
	UserID       string `json:"user_id"`
	SkillLevel   string `json:"skill_level"`
	AnalysisType string `json:"analysis_type"`
}

func (a analysisRequest) validate() error {
	switch {
	case strings.TrimSpace(a.AnalysisID) == "":
		return errors.New("missing analysis_id")
	case strings.TrimSpace(a.VideoRef) == "":
		return errors.New("missing video_ref")
	case strings.TrimSpace(a.VideoID) == "":
		return errors.New("missing video_id")
	case strings.TrimSpace(a.UserID) == "":
		return errors.New("missing user_id")
	}
	if !model.SkillLevel(a.SkillLevel).Valid() {
		return errors.New("invalid skill_level; expected BEGINNER, INTERMEDIATE, ADVANCED or PROFESSIONAL")
	}
	if a.AnalysisType != "" && !model.AnalysisType(a.AnalysisType).Valid() {
		return errors.New("invalid analysis_type")
	}
	return nil
}

// toModel applies defaults and converts to the domain request.
func (a analysisRequest) toModel() model.AnalysisRequest {
	atype := model.AnalysisType(a.AnalysisType)
	if a.AnalysisType == "" {
		atype = model.AnalysisFull
	}
	return model.AnalysisRequest{
		AnalysisID:   a.AnalysisID,
		VideoRef:     a.VideoRef,
		VideoID:      a.VideoID,
		UserID:       a.UserID,
		SkillLevel:   model.SkillLevel(a.SkillLevel),
		AnalysisType: atype,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
