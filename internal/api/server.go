// Package api provides the host-side HTTP API for a preset library and the
// client store that talks to it.
//
// SYSTEM ARCHITECTURE ROLE:
// The host owns presets and exposes a save endpoint. `prompt-mover serve` runs
// this server over a local preset directory; any other prompt-mover instance
// (or the host's own frontend) can then read and save presets through it.
//
// ENDPOINT STRUCTURE:
// - GET  /api/health: liveness
// - GET  /api/presets: preset summaries
// - GET  /api/presets/{name}: full preset JSON, host fields preserved
// - POST /api/presets/save: body {apiId, name, preset}, replies {"ok": true, "name": ...}
// - POST /api/relocate: runs a copy or move on the server's own library
//
// MIDDLEWARE STACK:
// - chi RequestID and Recoverer
// - zap request logging with status and duration
// - CORS for browser hosts
// - per-route JSON body validation against internal/validation schemas
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/relocate"
	"github.com/dpshade/prompt-mover/internal/service"
	"github.com/dpshade/prompt-mover/internal/validation"
)

// Server serves a preset store over HTTP
type Server struct {
	store        service.Store
	service      *service.Service
	validator    *validation.Validator
	errorHandler *errors.HTTPErrorHandler
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server over store. svc runs relocations requested
// through /api/relocate and must wrap the same store.
func NewServer(store service.Store, svc *service.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	return &Server{
		store:        store,
		service:      svc,
		validator:    validation.NewValidator(),
		errorHandler: errors.NewHTTPErrorHandler(true, logger), // Include details in responses
		logger:       logger,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/presets", s.handleListPresets)
	r.Get("/api/presets/{name}", s.handleGetPreset)
	r.With(s.validateBody("save_preset")).Post("/api/presets/save", s.handleSavePreset)
	r.With(s.validateBody("relocate")).Post("/api/relocate", s.handleRelocate)

	return r
}

// Start begins serving HTTP requests on addr and blocks until the server stops
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// PresetList is the body of GET /api/presets
type PresetList struct {
	Presets []models.Summary `json:"presets"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PresetList{Presets: summaries})
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	preset, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

// SaveRequest is the body of POST /api/presets/save
type SaveRequest struct {
	APIID  string          `json:"apiId"`
	Name   string          `json:"name"`
	Preset json.RawMessage `json:"preset"`
}

// SaveResponse acknowledges a saved preset
type SaveResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidFormat, "Invalid request body"))
		return
	}

	var preset models.Preset
	if err := json.Unmarshal(req.Preset, &preset); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidFormat, "preset must be a JSON object"))
		return
	}
	preset.Name = req.Name

	if err := s.store.Persist(r.Context(), req.Name, &preset); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("preset saved",
		zap.String("preset", req.Name),
		zap.String("api_id", validation.SanitizeString(req.APIID)),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	s.writeJSON(w, http.StatusOK, SaveResponse{OK: true, Name: req.Name})
}

// RelocateRequest is the body of POST /api/relocate
type RelocateRequest struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Identifier string `json:"identifier"`
	Mode       string `json:"mode"`
	Slot       *int   `json:"slot,omitempty"`
	Before     string `json:"before,omitempty"`
	After      string `json:"after,omitempty"`
	Scope      string `json:"scope,omitempty"`
}

// Position converts the addressing fields; no field means the end of the scope
func (req RelocateRequest) Position() relocate.Position {
	switch {
	case req.Before != "":
		return relocate.BeforeItem(req.Before)
	case req.After != "":
		return relocate.AfterItem(req.After)
	case req.Slot != nil:
		return relocate.AtSlot(*req.Slot)
	default:
		return relocate.AtEnd()
	}
}

// RelocateResponse reports the prompt as it was inserted
type RelocateResponse struct {
	OK         bool   `json:"ok"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Renamed    bool   `json:"renamed"`
}

func (s *Server) handleRelocate(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		s.writeError(w, errors.NewAppError(errors.ErrCodeServiceUnavailable, "relocation is not enabled on this server"))
		return
	}

	var req RelocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidFormat, "Invalid request body"))
		return
	}
	mode, err := relocate.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	outcome, err := s.service.Relocate(r.Context(), service.Operation{
		SourceName: req.Source,
		TargetName: req.Target,
		Identifier: req.Identifier,
		Position:   req.Position(),
		Mode:       mode,
		Scope:      req.Scope,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, RelocateResponse{
		OK:         true,
		Source:     outcome.Source,
		Target:     outcome.Target,
		Identifier: outcome.Item.Identifier,
		Name:       outcome.Item.Name,
		Renamed:    outcome.Renamed,
	})
}
