// Package http exposes predictions and consultations over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/crew"
	"github.com/KamdynS/heartcrew/history"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/tools/heart"
	"github.com/KamdynS/heartcrew/workflow"
)

// Consulter runs a full consultation. *crew.Clinic implements it.
type Consulter interface {
	Consult(ctx context.Context, patientData string, opts ...workflow.Option) (*history.Record, error)
}

// Predictor classifies patient data directly. *heart.Predictor implements it.
type Predictor interface {
	Predict(ctx context.Context, patientData string) (*heart.Prediction, error)
}

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

// Server serves the heartcrew API
type Server struct {
	clinic    Consulter
	predictor Predictor
	history   history.Store
	metrics   http.Handler
	logger    *log.Logger
	config    Config
	server    *http.Server
}

// Config holds HTTP server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
	// Metrics serves /metrics when set
	Metrics http.Handler
	Logger  *log.Logger
}

// NewServer creates a new HTTP server. Any of clinic, predictor and store may
// be nil; their routes then answer 503.
func NewServer(clinic Consulter, predictor Predictor, store history.Store, config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		// consultations wait on two model-driven agents
		config.WriteTimeout = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	// a nil pointer in a non-nil interface would slip past the 503 checks
	if p, ok := predictor.(*heart.Predictor); ok && p == nil {
		predictor = nil
	}
	if c, ok := clinic.(*crew.Clinic); ok && c == nil {
		clinic = nil
	}

	s := &Server{
		clinic:    clinic,
		predictor: predictor,
		history:   store,
		metrics:   config.Metrics,
		logger:    config.Logger,
		config:    config,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	var handler http.Handler = mux
	if config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.requestIDMiddleware(handler)

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /predict", s.predictHandler)
	mux.HandleFunc("POST /diagnose", s.diagnoseHandler)
	mux.HandleFunc("GET /consultations", s.listHandler)
	mux.HandleFunc("GET /consultations/{id}", s.getHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// PatientRequest carries the free-text patient description
type PatientRequest struct {
	PatientData string `json:"patient_data"`
}

// PredictResponse is the direct classifier answer
type PredictResponse struct {
	Label   string   `json:"label"`
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Parsed  []string `json:"parsed,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		s.writeError(w, r, "prediction is not configured", http.StatusServiceUnavailable)
		return
	}
	req, ok := s.decodePatient(w, r)
	if !ok {
		return
	}
	pred, err := s.predictor.Predict(r.Context(), req.PatientData)
	if err != nil {
		s.logFor(r).Error("prediction failed", "err", err)
		s.writeError(w, r, "Error in heart disease prediction: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, PredictResponse{
		Label:   string(pred.Label),
		Code:    int(pred.Code),
		Message: "ML Model Prediction: " + string(pred.Label),
		Parsed:  pred.Parsed,
		Missing: pred.Missing,
	})
}

func (s *Server) diagnoseHandler(w http.ResponseWriter, r *http.Request) {
	if s.clinic == nil {
		s.writeError(w, r, "consultations are not configured", http.StatusServiceUnavailable)
		return
	}
	req, ok := s.decodePatient(w, r)
	if !ok {
		return
	}
	rec, err := s.clinic.Consult(r.Context(), req.PatientData)
	switch {
	case errors.Is(err, crew.ErrEmptyPatientData):
		s.writeError(w, r, err.Error(), http.StatusBadRequest)
	case err != nil && rec == nil:
		s.logFor(r).Error("consultation failed", "err", err)
		s.writeError(w, r, "Internal server error", http.StatusInternalServerError)
	case err != nil:
		// the failed record was stored and carries the error
		s.logFor(r).Error("consultation failed", "id", rec.ID, "err", err)
		s.writeJSON(w, http.StatusBadGateway, rec)
	default:
		s.writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, "history is not configured", http.StatusServiceUnavailable)
		return
	}
	rec, err := s.history.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, r, "consultation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logFor(r).Error("history lookup failed", "err", err)
		s.writeError(w, r, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, r, "history is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logFor(r).Error("history list failed", "err", err)
		s.writeError(w, r, "Internal server error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*history.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) decodePatient(w http.ResponseWriter, r *http.Request) (PatientRequest, bool) {
	var req PatientRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, "Request body too large", http.StatusRequestEntityTooLarge)
			return req, false
		}
		s.writeError(w, r, "Invalid JSON", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) logFor(r *http.Request) *log.Logger {
	if id, ok := obs.RequestIDFromContext(r.Context()); ok {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	id, _ := obs.RequestIDFromContext(r.Context())
	s.writeJSON(w, code, ErrorResponse{Error: message, RequestID: id})
}

// statusWriter remembers the status code a handler wrote
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware tags every request with an id and a server span
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := obs.ExtractHTTPContext(r.Context(), r)
		obs.InjectHTTPHeaders(w, ctx)
		span, ctx := obs.TracerImpl.StartSpan(ctx, "http.request")
		defer span.End()
		id, _ := obs.RequestIDFromContext(ctx)
		span.SetAttribute(obs.AttrRequestID, id)
		span.SetAttribute(obs.AttrHTTPMethod, r.Method)
		span.SetAttribute(obs.AttrHTTPRoute, r.URL.Path)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))
		span.SetAttribute(obs.AttrHTTPStatus, sw.status)
		if sw.status >= http.StatusInternalServerError {
			span.SetStatus(obs.StatusCodeError, http.StatusText(sw.status))
		}
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", sw.status, "took", time.Since(start), "request_id", id)
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends
func (s *Server) ListenAndServe(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
