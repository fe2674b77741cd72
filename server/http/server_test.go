package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/classifier"
	"github.com/KamdynS/heartcrew/crew"
	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/history"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/observability/prom"
	"github.com/KamdynS/heartcrew/outcome"
	"github.com/KamdynS/heartcrew/tools/heart"
	"github.com/KamdynS/heartcrew/workflow"
)

var quiet = log.New(io.Discard)

// MockClinic records consultations and stores them like the real clinic
type MockClinic struct {
	store history.Store
	calls []string
	err   error
}

func (m *MockClinic) Consult(ctx context.Context, patientData string, opts ...workflow.Option) (*history.Record, error) {
	m.calls = append(m.calls, patientData)
	if strings.TrimSpace(patientData) == "" {
		return nil, crew.ErrEmptyPatientData
	}
	rec := history.NewRecord(patientData)
	rec.Diagnosis = "Likely STEMI"
	rec.Treatment = "Immediate reperfusion"
	if m.err != nil {
		rec.Error = m.err.Error()
	}
	if m.store != nil {
		if err := m.store.Save(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, m.err
}

func newTestServer(t *testing.T) (*Server, *MockClinic, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore()
	clinic := &MockClinic{store: store}
	p := heart.NewPredictor(heart.PredictorConfig{Classifier: classifier.Fixed{Code: 11}, Logger: quiet})
	return NewServer(clinic, p, store, Config{Logger: quiet}), clinic, store
}

func do(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNewServer_DefaultConfig(t *testing.T) {
	s := NewServer(nil, nil, nil, Config{})
	if s.server.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %s", s.server.Addr)
	}
	if s.config.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default ReadTimeout 10s, got %v", s.config.ReadTimeout)
	}
	if s.config.WriteTimeout != 5*time.Minute {
		t.Errorf("Expected default WriteTimeout 5m, got %v", s.config.WriteTimeout)
	}
}

func TestServer_Health(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", resp["status"])
	}
	if _, err := time.Parse(time.RFC3339, resp["time"]); err != nil {
		t.Errorf("Invalid time format: %v", err)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID to be set")
	}
}

func TestServer_RequestIDEchoed(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("Expected caller's request id, got %q", got)
	}
}

func TestServer_Predict(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, "POST", "/predict", PatientRequest{PatientData: "chest pain, Age: 64"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Label != "STEMI" || resp.Code != 11 {
		t.Errorf("Unexpected prediction %+v", resp)
	}
	if resp.Message != "ML Model Prediction: STEMI" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
	if len(resp.Parsed) != 1 || resp.Parsed[0] != "Age" {
		t.Errorf("Expected Age to be parsed, got %v", resp.Parsed)
	}
}

func TestServer_PredictErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/predict", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", w.Code)
	}

	if w := do(s, "GET", "/predict", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}

	failing := heart.NewPredictor(heart.PredictorConfig{
		Classifier: classifier.Func(func(context.Context, features.Vector) (outcome.ClassCode, error) {
			return 0, errors.New("model offline")
		}),
		Logger: quiet,
	})
	bad := NewServer(nil, failing, nil, Config{Logger: quiet})
	w = do(bad, "POST", "/predict", PatientRequest{PatientData: "x"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 when the classifier fails, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "model offline") {
		t.Errorf("Expected classifier error in body, got %s", w.Body.String())
	}

	none := NewServer(nil, nil, nil, Config{Logger: quiet})
	if w := do(none, "POST", "/predict", PatientRequest{PatientData: "x"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without predictor, got %d", w.Code)
	}

	var nilPredictor *heart.Predictor
	var nilClinic *crew.Clinic
	typedNil := NewServer(nilClinic, nilPredictor, nil, Config{Logger: quiet})
	if w := do(typedNil, "POST", "/predict", PatientRequest{PatientData: "x"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for a nil *heart.Predictor, got %d", w.Code)
	}
	if w := do(typedNil, "POST", "/diagnose", PatientRequest{PatientData: "x"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for a nil *crew.Clinic, got %d", w.Code)
	}
}

func TestServer_BodyTooLarge(t *testing.T) {
	s, clinic, _ := newTestServer(t)
	big := `{"patient_data":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	for _, path := range []string{"/predict", "/diagnose"} {
		req := httptest.NewRequest("POST", path, strings.NewReader(big))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("%s: expected 413, got %d", path, w.Code)
		}
	}
	if len(clinic.calls) != 0 {
		t.Errorf("oversized body reached the clinic: %d calls", len(clinic.calls))
	}
}

func TestServer_DiagnoseAndLookup(t *testing.T) {
	s, clinic, _ := newTestServer(t)

	w := do(s, "POST", "/diagnose", PatientRequest{PatientData: "Severe chest pain radiating to the left arm"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rec history.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.Diagnosis != "Likely STEMI" {
		t.Fatalf("Unexpected record %+v", rec)
	}
	if len(clinic.calls) != 1 {
		t.Errorf("Expected one consultation, got %d", len(clinic.calls))
	}

	w = do(s, "GET", "/consultations/"+rec.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got history.Record
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != rec.ID || got.Treatment != "Immediate reperfusion" {
		t.Errorf("Unexpected stored record %+v", got)
	}

	w = do(s, "GET", "/consultations?limit=5", nil)
	var list []history.Record
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("Unexpected list %+v", list)
	}
}

func TestServer_DiagnoseErrors(t *testing.T) {
	s, clinic, store := newTestServer(t)

	if w := do(s, "POST", "/diagnose", PatientRequest{PatientData: "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty patient data, got %d", w.Code)
	}

	clinic.err = errors.New("model unavailable")
	w := do(s, "POST", "/diagnose", PatientRequest{PatientData: "dizziness"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	var rec history.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Error != "model unavailable" {
		t.Errorf("Expected failure on record, got %q", rec.Error)
	}
	if _, err := store.Get(context.Background(), rec.ID); err != nil {
		t.Errorf("Failed consultation should be stored: %v", err)
	}
}

func TestServer_ConsultationLookupErrors(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(s, "GET", "/consultations/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID == "" {
		t.Error("Expected request id in error body")
	}
	if w := do(s, "GET", "/consultations?limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	exp := prom.New()
	exp.RecordPrediction("STEMI")
	s := NewServer(nil, nil, nil, Config{Metrics: prom.Handler(exp), Logger: quiet})

	w := do(s, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "heartcrew_predictions_total") {
		t.Errorf("Expected predictions series, got %s", w.Body.String())
	}

	bare := NewServer(nil, nil, nil, Config{Logger: quiet})
	if w := do(bare, "GET", "/metrics", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without exporter, got %d", w.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	s := NewServer(nil, nil, nil, Config{EnableCORS: true, Logger: quiet})
	w := do(s, "OPTIONS", "/diagnose", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	s := NewServer(nil, nil, nil, Config{Addr: "127.0.0.1:0", Logger: quiet})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Unexpected shutdown error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RequestSpan(t *testing.T) {
	tr := obs.NewDefaultTracer()
	old := obs.TracerImpl
	obs.SetTracer(tr)
	t.Cleanup(func() { obs.SetTracer(old) })

	s, _, _ := newTestServer(t)
	do(s, "GET", "/consultations/missing", nil)

	var found bool
	for _, sp := range tr.GetSpans() {
		if sp.Name != "http.request" {
			continue
		}
		found = true
		if sp.Attributes[obs.AttrHTTPStatus] != http.StatusNotFound {
			t.Errorf("Expected 404 status attribute, got %v", sp.Attributes[obs.AttrHTTPStatus])
		}
		if sp.Attributes[obs.AttrHTTPMethod] != "GET" {
			t.Errorf("Expected method attribute, got %v", sp.Attributes[obs.AttrHTTPMethod])
		}
	}
	if !found {
		t.Fatal("Expected an http.request span")
	}
}
