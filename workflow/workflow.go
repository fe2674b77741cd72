// Package workflow chains named steps into a small graph: sequential steps,
// conditional steps, and fan-out branches joined by a merge step.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	obs "github.com/KamdynS/heartcrew/observability"
)

// StepFunc is the function executed by a step. It receives the previous output and returns the next output.
type StepFunc func(ctx context.Context, input any) (any, error)

// ConditionFunc decides whether a step or branch runs. input is the value the
// step would receive.
type ConditionFunc func(ctx context.Context, input any) bool

// MergeFunc combines outputs from multiple branches.
type MergeFunc func(ctx context.Context, inputs []any) (any, error)

// Event types
const (
	EventStart = "start_step"
	EventEnd   = "end_step"
	EventSkip  = "skip_step"
	EventError = "error"
)

// Event represents a single execution event for observability/streaming.
type Event struct {
	Type      string        `json:"type"`
	Step      string        `json:"step"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Option configures workflow runs.
type Option func(*runConfig)

type runConfig struct {
	events chan<- Event
}

// WithEvents streams events to the provided channel during Run. Sends never
// block; events are dropped when the channel is full.
func WithEvents(events chan<- Event) Option { return func(rc *runConfig) { rc.events = events } }

type step struct {
	name     string
	fn       StepFunc
	when     ConditionFunc
	next     *step
	branches []*branch
	merge    *step
}

type branch struct {
	root *step
	when ConditionFunc
}

// Builder constructs a workflow graph using a fluent API.
type Builder struct {
	root    *step
	current *step
	// lastBranch is set right after Branch so When targets that edge
	lastBranch *branch
	err        error
}

// New creates a workflow builder.
func New() *Builder { return &Builder{} }

// Branch starts a sub-workflow to attach with (*Builder).Branch.
func Branch(name string, fn StepFunc) *Builder {
	return New().Step(name, fn)
}

// Step adds a step after the current one.
func (b *Builder) Step(name string, fn StepFunc) *Builder {
	if fn == nil {
		b.fail(fmt.Errorf("step %q has no function", name))
		return b
	}
	if b.current != nil && len(b.current.branches) > 0 && b.current.merge == nil {
		b.fail(fmt.Errorf("step %q follows branches without a merge", name))
		return b
	}
	s := &step{name: name, fn: fn}
	b.link(s)
	return b
}

// Then is an alias for Step.
func (b *Builder) Then(name string, fn StepFunc) *Builder { return b.Step(name, fn) }

// When makes the most recent step, or the most recent branch when called
// right after Branch, conditional. A skipped step passes its input through.
func (b *Builder) When(cond ConditionFunc) *Builder {
	switch {
	case cond == nil:
	case b.lastBranch != nil:
		b.lastBranch.when = cond
	case b.current != nil:
		b.current.when = cond
	}
	return b
}

// Branch fans the current step's output out to each branch. Branches run
// concurrently; follow with Merge to join them. A condition set on a branch's
// first step gates the whole branch: when it fails the branch is left out of
// the merge instead of passing its input through.
func (b *Builder) Branch(branches ...*Builder) *Builder {
	if b.current == nil {
		b.fail(errors.New("branch without a parent step"))
		return b
	}
	for _, child := range branches {
		if child == nil || child.root == nil {
			continue
		}
		if child.err != nil {
			b.fail(child.err)
			continue
		}
		br := &branch{root: child.root, when: child.root.when}
		child.root.when = nil
		b.current.branches = append(b.current.branches, br)
		b.lastBranch = br
	}
	return b
}

// Merge joins the outputs of the branches that ran, in declaration order.
func (b *Builder) Merge(name string, fn MergeFunc) *Builder {
	if b.current == nil || len(b.current.branches) == 0 {
		b.fail(fmt.Errorf("merge %q without branches", name))
		return b
	}
	if fn == nil {
		b.fail(fmt.Errorf("merge %q has no function", name))
		return b
	}
	m := &step{name: name, fn: func(ctx context.Context, in any) (any, error) {
		return fn(ctx, in.([]any))
	}}
	b.current.merge = m
	b.current = m
	b.lastBranch = nil
	return b
}

func (b *Builder) link(s *step) {
	if b.root == nil {
		b.root = s
	} else {
		b.current.next = s
	}
	b.current = s
	b.lastBranch = nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build finalizes the workflow and returns a runnable Workflow.
func (b *Builder) Build() (*Workflow, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.root == nil {
		return nil, ErrNoRoot
	}
	return &Workflow{root: b.root}, nil
}

// MustBuild is Build for graphs fixed at compile time.
func (b *Builder) MustBuild() *Workflow {
	w, err := b.Build()
	if err != nil {
		panic(err)
	}
	return w
}

// Workflow executes a built graph.
type Workflow struct {
	root *step
}

// Run executes the workflow and returns the last step's output.
func (w *Workflow) Run(ctx context.Context, input any, opts ...Option) (any, error) {
	rc := &runConfig{}
	for _, o := range opts {
		o(rc)
	}
	if w == nil || w.root == nil {
		return input, nil
	}
	return w.run(ctx, w.root, input, rc)
}

func (w *Workflow) run(ctx context.Context, cur *step, in any, rc *runConfig) (any, error) {
	for cur != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cur.when != nil && !cur.when(ctx, in) {
			emit(rc, Event{Type: EventSkip, Step: cur.name, Timestamp: time.Now()})
			if len(cur.branches) > 0 {
				// a skipped fan-out skips its merge too
				cur = cur.merge
				if cur != nil {
					cur = cur.next
				}
				continue
			}
			cur = cur.next
			continue
		}

		out, err := w.exec(ctx, cur, in, rc)
		if err != nil {
			return nil, err
		}

		if len(cur.branches) > 0 {
			results, err := w.fanOut(ctx, cur.branches, out, rc)
			if err != nil {
				return nil, err
			}
			if cur.merge == nil {
				if len(results) > 0 {
					return results[len(results)-1], nil
				}
				return out, nil
			}
			merged, err := w.exec(ctx, cur.merge, results, rc)
			if err != nil {
				return nil, err
			}
			in = merged
			cur = cur.merge.next
			continue
		}

		in = out
		cur = cur.next
	}
	return in, nil
}

func (w *Workflow) exec(ctx context.Context, s *step, in any, rc *runConfig) (any, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "workflow.step")
	defer span.End()
	span.SetAttribute("workflow.step", s.name)

	start := time.Now()
	emit(rc, Event{Type: EventStart, Step: s.name, Timestamp: start})
	out, err := s.fn(ctx, in)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		emit(rc, Event{Type: EventError, Step: s.name, Timestamp: time.Now(), Duration: time.Since(start), Error: err.Error()})
		return nil, fmt.Errorf("step %s: %w", s.name, err)
	}
	span.SetStatus(obs.StatusCodeOk, "")
	emit(rc, Event{Type: EventEnd, Step: s.name, Timestamp: time.Now(), Duration: time.Since(start), Output: out})
	return out, nil
}

// fanOut runs every enabled branch concurrently. The first failure cancels
// the rest.
func (w *Workflow) fanOut(ctx context.Context, branches []*branch, in any, rc *runConfig) ([]any, error) {
	results := make([]any, len(branches))
	ran := make([]bool, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, br := range branches {
		if br.when != nil && !br.when(ctx, in) {
			emit(rc, Event{Type: EventSkip, Step: br.root.name, Timestamp: time.Now()})
			continue
		}
		i, br := i, br
		ran[i] = true
		g.Go(func() error {
			out, err := w.run(gctx, br.root, in, rc)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(branches))
	for i := range results {
		if ran[i] {
			out = append(out, results[i])
		}
	}
	return out, nil
}

func emit(rc *runConfig, e Event) {
	if rc != nil && rc.events != nil {
		select {
		case rc.events <- e:
		default:
		}
	}
}

// ErrNoRoot is returned by Build for an empty builder.
var ErrNoRoot = errors.New("workflow has no root step")
