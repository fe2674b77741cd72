// Package crew runs tasks through their agents in order, each task seeing
// the outputs of the ones before it.
package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/KamdynS/heartcrew/agent/core"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/workflow"
)

var (
	// ErrEmptyPatientData is returned before any model call when the
	// patient description is blank.
	ErrEmptyPatientData = errors.New("crew: patient data is empty")
	ErrNoTasks          = errors.New("crew: no tasks")
)

// TaskOutput is what one task produced.
type TaskOutput struct {
	Task     string        `json:"task"`
	Agent    string        `json:"agent"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Result is a finished kickoff.
type Result struct {
	RunID string       `json:"run_id"`
	Tasks []TaskOutput `json:"tasks"`
	// Final is the last task's output
	Final string `json:"final"`
}

// Output returns the named task's output.
func (r *Result) Output(task string) (string, bool) {
	for _, t := range r.Tasks {
		if t.Task == task {
			return t.Output, true
		}
	}
	return "", false
}

// Crew executes a fixed list of tasks sequentially.
type Crew struct {
	tasks  []Task
	logger *log.Logger
}

func New(logger *log.Logger, tasks ...Task) *Crew {
	if logger == nil {
		logger = log.Default()
	}
	return &Crew{tasks: tasks, logger: logger}
}

// Kickoff runs every task. All agents share one session so their
// transcripts are grouped under the returned RunID.
func (c *Crew) Kickoff(ctx context.Context, opts ...workflow.Option) (*Result, error) {
	if len(c.tasks) == 0 {
		return nil, ErrNoTasks
	}
	runID, ok := core.SessionFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = core.WithSession(ctx, runID)
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "crew.kickoff")
	defer span.End()
	span.SetAttribute(obs.AttrRequestID, runID)

	b := workflow.New()
	for _, t := range c.tasks {
		b.Step(t.Name, c.taskStep(t))
	}
	w, err := b.Build()
	if err != nil {
		return nil, err
	}

	out, err := w.Run(ctx, []TaskOutput(nil), opts...)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}
	outputs := out.([]TaskOutput)
	res := &Result{RunID: runID, Tasks: outputs}
	if len(outputs) > 0 {
		res.Final = outputs[len(outputs)-1].Output
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return res, nil
}

func (c *Crew) taskStep(t Task) workflow.StepFunc {
	return func(ctx context.Context, in any) (any, error) {
		previous, _ := in.([]TaskOutput)
		if t.Agent == nil {
			return nil, fmt.Errorf("task %s has no agent", t.Name)
		}
		name := t.agentName()
		span := obs.TracerImpl.SpanFromContext(ctx)
		span.SetAttribute(obs.AttrTask, t.Name)
		span.SetAttribute("crew.agent", name)
		c.logger.Info("task started", "task", t.Name, "agent", name)

		start := time.Now()
		msg, err := t.Agent.Run(ctx, core.Message{Role: "user", Content: t.Prompt(previous)})
		if err != nil {
			c.logger.Error("task failed", "task", t.Name, "agent", name, "err", err)
			return nil, err
		}
		took := time.Since(start)
		c.logger.Info("task finished", "task", t.Name, "agent", name, "took", took)

		out := make([]TaskOutput, len(previous), len(previous)+1)
		copy(out, previous)
		return append(out, TaskOutput{
			Task:     t.Name,
			Agent:    name,
			Output:   strings.TrimSpace(msg.Content),
			Duration: took,
		}), nil
	}
}

// Doctors runs the diagnosis task then the treatment task for patientData.
func Doctors(ctx context.Context, diagnosis, treatment core.Agent, patientData string, logger *log.Logger, opts ...workflow.Option) (*Result, error) {
	patientData = strings.TrimSpace(patientData)
	if patientData == "" {
		return nil, ErrEmptyPatientData
	}
	c := New(logger, DiagnoseTask(diagnosis, patientData), TreatmentTask(treatment, ""))
	return c.Kickoff(ctx, opts...)
}
