// Package doctors defines the two roles of the heart crew and builds chat
// agents for them.
package doctors

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/agent/core"
	"github.com/KamdynS/heartcrew/llm"
	"github.com/KamdynS/heartcrew/memory"
	"github.com/KamdynS/heartcrew/tools"
	"github.com/KamdynS/heartcrew/tools/heart"
)

// Role is a persona handed to the model as its system prompt.
type Role struct {
	Name      string
	Backstory string
	Goal      string
	// Tools names the registry entries this role may call
	Tools []string
}

// SystemPrompt renders the role for the model.
func (r Role) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s.\n\n", r.Name)
	b.WriteString(r.Backstory)
	b.WriteString("\n\nYour goal: ")
	b.WriteString(r.Goal)
	if len(r.Tools) > 0 {
		b.WriteString("\n\nYou can call these tools: ")
		b.WriteString(strings.Join(r.Tools, ", "))
		b.WriteString(".")
	}
	b.WriteString("\n\nYou work alone and cannot delegate to other agents.")
	return b.String()
}

// Tool names available to the diagnosis role.
const (
	PredictorTool = heart.PredictorName
	ImageTool     = heart.ImageName
)

func DiagnosisDoctor() Role {
	return Role{
		Name: "Diagnosis Doctor",
		Backstory: "You are an experienced medical doctor with 20 years of experience in diagnosing patients. " +
			"You can accurately identify illnesses based on symptoms, lab results, and medical history.",
		Goal: "Determine whether the patient is sick or healthy. If sick, provide the illness name in the format: " +
			"'Sick with [diagnosis]'. If healthy, simply state 'Healthy'.",
		Tools: []string{PredictorTool, ImageTool},
	}
}

func TreatmentDoctor() Role {
	return Role{
		Name: "Treatment Doctor",
		Backstory: "You are a senior medical specialist with over 20 years of experience in treatment planning. " +
			"You have extensive knowledge of medical guidelines, medications, and best practices for curing diseases effectively and safely.",
		Goal: "Based on the patient's diagnosis, create a clear treatment plan. Include medication or therapy " +
			"recommendations and specify the timing or duration of the treatment.",
	}
}

// Options tune the agents New builds.
type Options struct {
	MaxIterations int
	Timeout       time.Duration
	Temperature   *float64
	MaxInputChars int
	Logger        *log.Logger
	Tokens        llm.TokenCounter
}

// New builds a chat agent for role. The agent only sees the registry tools
// the role names; a role naming a tool missing from reg is an error.
func New(role Role, client llm.Client, reg *tools.DefaultRegistry, store memory.ConversationStore, opts Options) (*core.ChatAgent, error) {
	if client == nil {
		return nil, fmt.Errorf("%s: no LLM client", role.Name)
	}
	var toolset tools.Registry
	if len(role.Tools) > 0 {
		if reg == nil {
			return nil, fmt.Errorf("%s: needs tools %v but no registry was given", role.Name, role.Tools)
		}
		sub, err := reg.Subset(role.Tools...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", role.Name, err)
		}
		toolset = sub
	}

	var mw []core.Middleware
	if opts.MaxInputChars > 0 {
		mw = append(mw, &core.InputGuardrails{MaxInputChars: opts.MaxInputChars})
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return core.NewChatAgent(core.ChatConfig{
		Model: client,
		Tools: toolset,
		Mem:   store,
		Config: core.AgentConfig{
			Name:          role.Name,
			MaxIterations: opts.MaxIterations,
			Timeout:       opts.Timeout,
			SystemPrompt:  role.SystemPrompt(),
			Temperature:   opts.Temperature,
		},
		Middleware: mw,
		Logger:     logger.With("role", role.Name),
		Tokens:     opts.Tokens,
	}), nil
}
