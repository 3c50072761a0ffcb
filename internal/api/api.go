// Package api exposes the pipeline's HTTP surface: batch submission,
// finding review, and score/finding reads. Finding status changes are
// debounced per file before triggering score recalculation.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/linguaflow/qa-pipeline/internal/debounce"
	"github.com/linguaflow/qa-pipeline/internal/model"
	"github.com/linguaflow/qa-pipeline/internal/store"
)

const tenantHeader = "X-Tenant-ID"
const userHeader = "X-User-ID"

// Server handles the HTTP API.
type Server struct {
	store     store.Store
	starter   WorkflowStarter
	debouncer *debounce.Keyed[model.FindingChangedEvent]
	limiter   *rate.Limiter
}

// Config tunes the server.
type Config struct {
	// DebounceDelay is the quiet period before a finding change triggers
	// recalculation.
	DebounceDelay time.Duration
	// RateLimit is requests per second across all clients; RateBurst is the
	// burst allowance. Zero values disable limiting.
	RateLimit float64
	RateBurst int
}

// NewServer wires the API against a store and a workflow starter.
func NewServer(s store.Store, starter WorkflowStarter, cfg Config) *Server {
	srv := &Server{store: s, starter: starter}
	srv.debouncer = debounce.NewKeyed(cfg.DebounceDelay, srv.fireRecalculation)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit)
		}
		srv.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return srv
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", tenantHeader, userHeader},
		MaxAge:         300,
	}))
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireTenant)
		r.Post("/batches", s.handleStartBatch)
		r.Patch("/findings/{findingID}", s.handleUpdateFinding)
		r.Get("/files/{fileID}/findings", s.handleListFindings)
		r.Get("/files/{fileID}/score", s.handleGetScore)
	})

	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(tenantHeader) == "" {
			writeError(w, http.StatusBadRequest, "missing "+tenantHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startBatchRequest struct {
	FileIDs   []string             `json:"file_ids"`
	ProjectID string               `json:"project_id"`
	Mode      model.ProcessingMode `json:"mode"`
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Mode == "" {
		req.Mode = model.ModeFull
	}

	ev := model.BatchStartedEvent{
		BatchID:   uuid.New().String(),
		FileIDs:   req.FileIDs,
		ProjectID: req.ProjectID,
		TenantID:  r.Header.Get(tenantHeader),
		UserID:    r.Header.Get(userHeader),
		Mode:      req.Mode,
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	workflowID, err := s.starter.StartBatch(r.Context(), ev)
	if err != nil {
		zap.L().Error("batch start failed", zap.String("batch_id", ev.BatchID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start batch")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id":    ev.BatchID,
		"workflow_id": workflowID,
		"files":       len(ev.FileIDs),
	})
}

type updateFindingRequest struct {
	Status        model.FindingStatus `json:"status"`
	ReviewSession string              `json:"review_session,omitempty"`
}

func (s *Server) handleUpdateFinding(w http.ResponseWriter, r *http.Request) {
	findingID := chi.URLParam(r, "findingID")
	tenantID := r.Header.Get(tenantHeader)

	var req updateFindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !model.ValidFindingStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid finding status")
		return
	}

	updated, err := s.store.UpdateFindingStatus(r.Context(), tenantID, findingID, req.Status)
	if err != nil {
		writeError(w, http.StatusNotFound, "finding not found")
		return
	}

	file, err := s.store.GetFile(r.Context(), tenantID, updated.FileID)
	if err != nil || file == nil {
		writeError(w, http.StatusInternalServerError, "file lookup failed")
		return
	}

	triggeredBy := r.Header.Get(userHeader)
	if triggeredBy == "" {
		triggeredBy = "api"
	}
	s.debouncer.Emit(updated.FileID, model.FindingChangedEvent{
		FindingID:   findingID,
		FileID:      updated.FileID,
		ProjectID:   file.ProjectID,
		TenantID:    tenantID,
		TriggeredBy: triggeredBy,
		NewState:    req.Status,
		Timestamp:   time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	findings, err := s.store.ListFindings(r.Context(), r.Header.Get(tenantHeader), fileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	writeJSON(w, http.StatusOK, findings)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	sc, err := s.store.GetScore(r.Context(), r.Header.Get(tenantHeader), fileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "no score for file")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// fireRecalculation runs on the debouncer's timer goroutine once a file's
// review burst goes quiet.
func (s *Server) fireRecalculation(fileID string, ev model.FindingChangedEvent) {
	// PreviousState is unknown at emit time for coalesced bursts; the
	// recalculation reads current finding state anyway.
	if ev.PreviousState == "" {
		ev.PreviousState = model.FindingStatusPending
	}
	if _, err := s.starter.StartRecalculate(context.Background(), ev); err != nil {
		zap.L().Error("recalculation start failed",
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}
}

// Close drops pending debounced recalculations.
func (s *Server) Close() {
	s.debouncer.CancelAll()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
