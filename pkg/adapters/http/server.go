package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMaxBodyBytes caps the size of analysis request bodies.
const DefaultMaxBodyBytes = 4 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Engine       ports.Analyzer
	Loader       ports.ModelLoader
	Parser       *compiler.Parser
	Logger       *slog.Logger
	Metrics      http.Handler
	MaxBodyBytes int64
}

// Option configures the HTTP server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithLoader mounts the /models routes backed by loader.
func WithLoader(loader ports.ModelLoader) Option {
	return func(s *Server) {
		s.Loader = loader
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.MaxBodyBytes = n
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.Analyzer, opts ...Option) http.Handler {
	s := &Server{
		Engine:       engine,
		Parser:       compiler.NewParser(),
		Logger:       logging.NewNop(),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/analyze", func(r chi.Router) {
		r.Post("/rollback", s.AnalyzeRollback)
		r.Post("/sensitivity-oneway", s.AnalyzeSensitivityOneWay)
		r.Post("/sensitivity", s.AnalyzeSensitivity)
	})

	if s.Loader != nil {
		r.Route("/models", func(r chi.Router) {
			r.Get("/", s.ListModels)
			r.Post("/{id}/rollback", s.RollbackModel)
			r.Post("/{id}/sensitivity-oneway", s.SensitivityModel)
		})
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(arbor.Version),
		"api_version": apiVersion,
	})
}

// AnalyzeRollback handles the POST /analyze/rollback request.
func (s *Server) AnalyzeRollback(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := s.decodeAnalysis(w, r)
	if !ok {
		return
	}

	out, err := s.Engine.Rollback(r.Context(), doc.Graph, doc.Variables.Merge(req.Variables))
	if err != nil {
		s.writeError(w, "Rollback", err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// AnalyzeSensitivityOneWay handles the POST /analyze/sensitivity-oneway request.
func (s *Server) AnalyzeSensitivityOneWay(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := s.decodeAnalysis(w, r)
	if !ok {
		return
	}

	res, err := s.Engine.SensitivityOneWay(r.Context(), doc.Graph, doc.Variables.Merge(req.Variables))
	if err != nil {
		s.writeError(w, "SensitivityOneWay", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// AnalyzeSensitivity handles the POST /analyze/sensitivity request.
func (s *Server) AnalyzeSensitivity(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := s.decodeAnalysis(w, r)
	if !ok {
		return
	}
	if len(req.Params) == 0 {
		s.badRequest(w, "Sensitivity", "missing_params", errors.New("params is required"))
		return
	}

	res, err := s.Engine.Sensitivity(r.Context(), doc.Graph, doc.Variables.Merge(req.Variables), req.Params)
	if err != nil {
		s.writeError(w, "Sensitivity", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ListModels handles the GET /models request.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Loader.ListModels(r.Context())
	if err != nil {
		s.writeError(w, "ListModels", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"models": ids})
}

// RollbackModel handles the POST /models/{id}/rollback request.
func (s *Server) RollbackModel(w http.ResponseWriter, r *http.Request) {
	doc, vars, ok := s.loadLibraryModel(w, r)
	if !ok {
		return
	}

	out, err := s.Engine.Rollback(r.Context(), doc.Graph, vars)
	if err != nil {
		s.writeError(w, "RollbackModel", err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// SensitivityModel handles the POST /models/{id}/sensitivity-oneway request.
func (s *Server) SensitivityModel(w http.ResponseWriter, r *http.Request) {
	doc, vars, ok := s.loadLibraryModel(w, r)
	if !ok {
		return
	}

	res, err := s.Engine.SensitivityOneWay(r.Context(), doc.Graph, vars)
	if err != nil {
		s.writeError(w, "SensitivityModel", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// -- Helpers --

func (s *Server) decodeAnalysis(w http.ResponseWriter, r *http.Request) (*compiler.Document, dto.AnalysisRequest, bool) {
	var req dto.AnalysisRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "Decode", "invalid_body", fmt.Errorf("invalid request body: %w", err))
		return nil, req, false
	}
	if len(req.Model) == 0 || string(req.Model) == "null" {
		s.badRequest(w, "Decode", "missing_model", errors.New("model is required"))
		return nil, req, false
	}

	doc, err := s.Parser.Parse(req.Model)
	if err != nil {
		s.badRequest(w, "Parse", "invalid_model", err)
		return nil, req, false
	}
	return doc, req, true
}

func (s *Server) loadLibraryModel(w http.ResponseWriter, r *http.Request) (*compiler.Document, domain.Variables, bool) {
	id := chi.URLParam(r, "id")

	var body struct {
		Variables map[string]float64 `json:"variables"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "Decode", "invalid_body", fmt.Errorf("invalid request body: %w", err))
			return nil, nil, false
		}
	}

	raw, err := s.Loader.GetModel(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetModel", err)
		return nil, nil, false
	}
	doc, err := s.Parser.Parse(raw)
	if err != nil {
		s.writeError(w, "Parse", fmt.Errorf("%w: %v", domain.ErrInvalidModel, err))
		return nil, nil, false
	}
	return doc, doc.Variables.Merge(body.Variables), true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, op, code string, err error) {
	s.Logger.Warn(op+": bad request", "error", err)
	s.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Warn(op+" rejected", "error", err, "code", code)
	}
	s.writeJSON(w, status, dto.ErrorResponse{Error: err.Error(), Code: code})
}

// classify maps engine errors onto HTTP statuses.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound, "model_not_found"
	case errors.Is(err, domain.ErrInvalidModel):
		return http.StatusUnprocessableEntity, "invalid_model"
	case errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusUnprocessableEntity, "node_not_found"
	case errors.Is(err, domain.ErrRootNotFound):
		return http.StatusUnprocessableEntity, "root_not_found"
	case errors.Is(err, domain.ErrAmbiguousRoot):
		return http.StatusUnprocessableEntity, "ambiguous_root"
	case errors.Is(err, domain.ErrCycleDetected):
		return http.StatusUnprocessableEntity, "cycle_detected"
	case errors.Is(err, domain.ErrDepthExceeded):
		return http.StatusUnprocessableEntity, "depth_exceeded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
