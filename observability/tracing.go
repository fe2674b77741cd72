// Package observability carries the tracing and metrics hooks the crew
// reports through. Both default to no-ops until SetTracer and SetMetrics
// install real implementations.
package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Tracer defines the interface for tracing
type Tracer interface {
	StartSpan(ctx context.Context, name string) (Span, context.Context)
	SpanFromContext(ctx context.Context) Span
}

// Span represents a tracing span
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]interface{})
	End()
}

// StatusCode represents span status codes
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

const (
	AttrHTTPMethod  = "http.method"
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.status_code"
	AttrRequestID   = "request.id"
	AttrProvider    = "genai.provider"
	AttrModel       = "genai.model"
	AttrToolName    = "genai.tool.name"
	AttrTask        = "crew.task"
	AttrLabel       = "heart.label"
	AttrFeatureFill = "heart.fill"
)

// Global, swappable implementations (no-ops by default)
var (
	TracerImpl  Tracer  = &NoOpTracer{}
	MetricsImpl Metrics = &NoOpMetrics{}
)

// SetTracer swaps the global tracer implementation
func SetTracer(t Tracer) { TracerImpl = t }

// SetMetrics swaps the global metrics implementation
func SetMetrics(m Metrics) { MetricsImpl = m }

// NoOpTracer records nothing
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &NoOpSpan{}, ctx
}

func (t *NoOpTracer) SpanFromContext(ctx context.Context) Span { return &NoOpSpan{} }

// NoOpSpan records nothing
type NoOpSpan struct{}

func (s *NoOpSpan) SetAttribute(key string, value interface{})              {}
func (s *NoOpSpan) SetStatus(code StatusCode, message string)               {}
func (s *NoOpSpan) AddEvent(name string, attributes map[string]interface{}) {}
func (s *NoOpSpan) End()                                                    {}

type spanKey struct{}

// DefaultTracer keeps recently finished spans in memory. Spans started under
// another span record its name as Parent.
type DefaultTracer struct {
	mu    sync.Mutex
	spans []SpanData
	limit int
	onEnd func(SpanData)
}

// TracerOption configures NewDefaultTracer.
type TracerOption func(*DefaultTracer)

// WithSpanLimit keeps only the newest n spans.
func WithSpanLimit(n int) TracerOption {
	return func(t *DefaultTracer) { t.limit = n }
}

// WithSpanLogger logs every finished span at debug level.
func WithSpanLogger(l *log.Logger) TracerOption {
	return func(t *DefaultTracer) {
		t.onEnd = func(d SpanData) {
			kv := []interface{}{"span", d.Name, "took", d.Duration}
			if d.Parent != "" {
				kv = append(kv, "parent", d.Parent)
			}
			if d.Status == StatusCodeError {
				kv = append(kv, "err", d.Message)
			}
			l.Debug("span finished", kv...)
		}
	}
}

// SpanData is a finished span.
type SpanData struct {
	Name       string                 `json:"name"`
	Parent     string                 `json:"parent,omitempty"`
	StartTime  time.Time              `json:"start_time"`
	Duration   time.Duration          `json:"duration"`
	Status     StatusCode             `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
	Events     []Event                `json:"events,omitempty"`
}

type Event struct {
	Name       string                 `json:"name"`
	Time       time.Time              `json:"time"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

func NewDefaultTracer(opts ...TracerOption) *DefaultTracer {
	t := &DefaultTracer{}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *DefaultTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	span := &DefaultSpan{
		tracer: t,
		data:   SpanData{Name: name, StartTime: time.Now(), Attributes: map[string]interface{}{}},
	}
	if parent, ok := ctx.Value(spanKey{}).(*DefaultSpan); ok {
		span.data.Parent = parent.name()
	}
	return span, context.WithValue(ctx, spanKey{}, span)
}

func (t *DefaultTracer) SpanFromContext(ctx context.Context) Span {
	if span, ok := ctx.Value(spanKey{}).(*DefaultSpan); ok {
		return span
	}
	return &NoOpSpan{}
}

// GetSpans returns the retained spans, oldest first.
func (t *DefaultTracer) GetSpans() []SpanData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanData(nil), t.spans...)
}

func (t *DefaultTracer) finish(d SpanData) {
	t.mu.Lock()
	t.spans = append(t.spans, d)
	if t.limit > 0 && len(t.spans) > t.limit {
		t.spans = append(t.spans[:0:0], t.spans[len(t.spans)-t.limit:]...)
	}
	onEnd := t.onEnd
	t.mu.Unlock()
	if onEnd != nil {
		onEnd(d)
	}
}

// DefaultSpan ignores every call after End.
type DefaultSpan struct {
	tracer *DefaultTracer
	mu     sync.Mutex
	data   SpanData
	ended  bool
}

func (s *DefaultSpan) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Name
}

// update applies fn unless the span has ended.
func (s *DefaultSpan) update(fn func(*SpanData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		fn(&s.data)
	}
}

func (s *DefaultSpan) SetAttribute(key string, value interface{}) {
	s.update(func(d *SpanData) { d.Attributes[key] = value })
}

func (s *DefaultSpan) SetStatus(code StatusCode, message string) {
	s.update(func(d *SpanData) { d.Status, d.Message = code, message })
}

func (s *DefaultSpan) AddEvent(name string, attributes map[string]interface{}) {
	s.update(func(d *SpanData) {
		d.Events = append(d.Events, Event{Name: name, Time: time.Now(), Attributes: attributes})
	})
}

func (s *DefaultSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.data.Duration = time.Since(s.data.StartTime)
	d := s.data
	s.mu.Unlock()
	s.tracer.finish(d)
}

var _ Tracer = (*NoOpTracer)(nil)
var _ Tracer = (*DefaultTracer)(nil)
var _ Span = (*NoOpSpan)(nil)
var _ Span = (*DefaultSpan)(nil)

const headerRequestID = "X-Request-ID"

type requestIDKey struct{}

// GenerateRequestID returns a random UUID string
func GenerateRequestID() string { return uuid.NewString() }

// WithRequestID stores a request id in the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext retrieves a request id from context
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractHTTPContext reads the caller's request id or mints one
func ExtractHTTPContext(ctx context.Context, r *http.Request) context.Context {
	id := r.Header.Get(headerRequestID)
	if id == "" {
		id = GenerateRequestID()
	}
	return WithRequestID(ctx, id)
}

// InjectHTTPHeaders echoes the request id on the response
func InjectHTTPHeaders(w http.ResponseWriter, ctx context.Context) {
	if id, ok := RequestIDFromContext(ctx); ok {
		w.Header().Set(headerRequestID, id)
	}
}
