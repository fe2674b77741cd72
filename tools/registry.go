// Package tools holds the tool abstraction agents call and the registry that
// dispatches calls by name.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	obs "github.com/KamdynS/heartcrew/observability"
)

var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrDuplicateTool = errors.New("tool already registered")
)

// Tool is something an agent can call by name. Input is the raw argument
// text the model produced; DecodeInput reads it.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input string) (string, error)
	// Schema describes the argument object, see SchemaFor
	Schema() map[string]interface{}
}

// Registry looks tools up by name.
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	// List is sorted so tool definitions sent to the model are stable
	List() []string
	Execute(ctx context.Context, name string, input string) (string, error)
}

// DefaultRegistry is the in-process Registry. Execute traces every call and
// records request, latency and error metrics labelled by tool.
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{tools: make(map[string]Tool)}
}

func (r *DefaultRegistry) Register(tool Tool) error {
	if tool == nil || strings.TrimSpace(tool.Name()) == "" {
		return fmt.Errorf("tool must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[tool.Name()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs the named tool. A panicking tool is reported as an error.
func (r *DefaultRegistry) Execute(ctx context.Context, name string, input string) (out string, err error) {
	labels := map[string]string{"tool": name}
	tool, ok := r.Get(name)
	if !ok {
		obs.MetricsImpl.RecordError("tool_not_found", labels)
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	defer span.End()
	span.SetAttribute(obs.AttrToolName, name)
	obs.MetricsImpl.IncrementRequests(labels)

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, p)
		}
		obs.MetricsImpl.RecordLatency(time.Since(start), labels)
		if err != nil {
			obs.MetricsImpl.RecordError("tool_error", labels)
			span.SetStatus(obs.StatusCodeError, err.Error())
			out = ""
			return
		}
		span.SetStatus(obs.StatusCodeOk, "")
	}()
	return tool.Execute(ctx, input)
}

// Subset returns a new registry with only the named tools. Every name must
// be registered.
func (r *DefaultRegistry) Subset(names ...string) (*DefaultRegistry, error) {
	sub := NewRegistry()
	var missing []string
	for _, n := range names {
		t, ok := r.Get(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		if err := sub.Register(t); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, strings.Join(missing, ", "))
	}
	return sub, nil
}
