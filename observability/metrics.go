package observability

import (
	"sync"
	"time"
)

// Metrics collects crew and tool measurements
type Metrics interface {
	// IncrementRequests increments the request counter
	IncrementRequests(labels map[string]string)

	// RecordLatency records request latency
	RecordLatency(duration time.Duration, labels map[string]string)

	// IncrementTokensUsed increments token usage counter
	IncrementTokensUsed(tokens int, labels map[string]string)

	// RecordError increments error counter
	RecordError(errorType string, labels map[string]string)

	// RecordPrediction counts one classifier outcome by label
	RecordPrediction(label string)
}

// NoOpMetrics discards everything
type NoOpMetrics struct{}

func (n *NoOpMetrics) IncrementRequests(labels map[string]string)                     {}
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string)       {}
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string)         {}
func (n *NoOpMetrics) RecordPrediction(label string)                                  {}

// DefaultMetrics is a simple in-memory metrics collector
type DefaultMetrics struct {
	mu           sync.Mutex
	requests     int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	predictions  map[string]int64
}

// NewDefaultMetrics creates a new DefaultMetrics instance
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		errors:      make(map[string]int64),
		predictions: make(map[string]int64),
	}
}

func (m *DefaultMetrics) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	m.requests++
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	m.totalLatency += duration
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	m.tokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	m.errors[errorType]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordPrediction(label string) {
	m.mu.Lock()
	m.predictions[label]++
	m.mu.Unlock()
}

// Stats is a point-in-time copy of DefaultMetrics
type Stats struct {
	Requests     int64            `json:"requests"`
	TotalLatency time.Duration    `json:"total_latency"`
	TokensUsed   int64            `json:"tokens_used"`
	Errors       map[string]int64 `json:"errors"`
	Predictions  map[string]int64 `json:"predictions"`
}

// GetStats returns current statistics
func (m *DefaultMetrics) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Requests:     m.requests,
		TotalLatency: m.totalLatency,
		TokensUsed:   m.tokensUsed,
		Errors:       make(map[string]int64, len(m.errors)),
		Predictions:  make(map[string]int64, len(m.predictions)),
	}
	for k, v := range m.errors {
		s.Errors[k] = v
	}
	for k, v := range m.predictions {
		s.Predictions[k] = v
	}
	return s
}

var _ Metrics = (*NoOpMetrics)(nil)
var _ Metrics = (*DefaultMetrics)(nil)
