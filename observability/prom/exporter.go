package prom

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KamdynS/heartcrew/observability"
)

// Exporter implements observability.Metrics and serves the Prometheus text
// exposition format.
type Exporter struct {
	mu          sync.Mutex
	requests    map[string]float64
	latency     map[string]float64
	tokens      map[string]float64
	errors      map[string]float64
	predictions map[string]float64
}

// New creates a new in-process exporter.
func New() *Exporter {
	return &Exporter{
		requests:    make(map[string]float64),
		latency:     make(map[string]float64),
		tokens:      make(map[string]float64),
		errors:      make(map[string]float64),
		predictions: make(map[string]float64),
	}
}

// Handler returns an HTTP handler for a /metrics endpoint.
func Handler(e *Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		e.WriteTo(w)
	})
}

// WriteTo renders every series in a stable order.
func (e *Exporter) WriteTo(w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	writeSeries(w, "heartcrew_requests_total", "counter", e.requests)
	writeSeries(w, "heartcrew_request_latency_seconds_sum", "counter", e.latency)
	writeSeries(w, "heartcrew_tokens_total", "counter", e.tokens)
	writeSeries(w, "heartcrew_errors_total", "counter", e.errors)
	writeSeries(w, "heartcrew_predictions_total", "counter", e.predictions)
}

func writeSeries(w io.Writer, name, kind string, series map[string]float64) {
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s} %s\n", name, k, strconv.FormatFloat(series[k], 'f', -1, 64))
	}
}

func (e *Exporter) IncrementRequests(labels map[string]string) {
	e.mu.Lock()
	e.requests[labelKey(labels)]++
	e.mu.Unlock()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	e.mu.Lock()
	e.latency[labelKey(labels)] += d.Seconds()
	e.mu.Unlock()
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.mu.Lock()
	e.tokens[labelKey(labels)] += float64(tokens)
	e.mu.Unlock()
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	merged := map[string]string{"type": errorType}
	for k, v := range labels {
		merged[k] = v
	}
	e.mu.Lock()
	e.errors[labelKey(merged)]++
	e.mu.Unlock()
}

func (e *Exporter) RecordPrediction(label string) {
	e.mu.Lock()
	e.predictions[labelKey(map[string]string{"label": label})]++
	e.mu.Unlock()
}

// labelKey renders labels as a sorted Prometheus label set.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return `scope="generic"`
	}
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + strconv.Quote(labels[k])
	}
	return strings.Join(parts, ",")
}

var _ observability.Metrics = (*Exporter)(nil)
