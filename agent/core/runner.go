package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/KamdynS/heartcrew/llm"
	"github.com/KamdynS/heartcrew/memory"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/tools"
)

// ChatAgent is the default implementation of the Agent interface
type ChatAgent struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	Config     AgentConfig
	Middleware []Middleware
	Logger     *log.Logger
	// Tokens estimates usage when a provider reports none
	Tokens llm.TokenCounter
}

// ChatConfig holds configuration for ChatAgent
type ChatConfig struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	Config     AgentConfig
	Middleware []Middleware
	Logger     *log.Logger
	Tokens     llm.TokenCounter
}

// NewChatAgent creates a new ChatAgent with the given configuration
func NewChatAgent(config ChatConfig) *ChatAgent {
	a := &ChatAgent{
		Model:      config.Model,
		Tools:      config.Tools,
		Mem:        config.Mem,
		Config:     config.Config,
		Middleware: config.Middleware,
		Logger:     config.Logger,
		Tokens:     config.Tokens,
	}
	if a.Logger == nil {
		a.Logger = log.Default()
	}
	if a.Tokens == nil {
		a.Tokens = llm.ApproxTokens
	}
	return a
}

// Name returns the configured agent name.
func (a *ChatAgent) Name() string { return a.Config.Name }

// Run implements the Agent interface. The transcript for the agent's session
// is replayed ahead of input, and everything exchanged during the run is
// appended to it once the run succeeds.
func (a *ChatAgent) Run(ctx context.Context, input Message) (Message, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	if a.Config.Name != "" {
		span.SetAttribute("agent.name", a.Config.Name)
	}
	if a.Model == nil {
		span.SetStatus(obs.StatusCodeError, "no model")
		return Message{}, fmt.Errorf("agent %q has no model", a.Config.Name)
	}

	if a.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.Timeout)
		defer cancel()
	}

	session, ok := SessionFromContext(ctx)
	if !ok {
		session = uuid.NewString()
	}
	key := memory.SessionKey(session, a.Config.Name)
	logger := a.Logger.With("agent", a.Config.Name, "session", session)

	var history []memory.Message
	if a.Mem != nil {
		h, err := a.Mem.GetMessages(ctx, key)
		if err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("failed to load transcript: %w", err)
		}
		history = h
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if a.Config.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: a.Config.SystemPrompt})
	}
	for _, m := range history {
		messages = append(messages, fromMemory(m))
	}
	if input.Role == "" {
		input.Role = "user"
	}
	messages = append(messages, llm.Message{Role: input.Role, Content: input.Content})
	newFrom := len(messages) - 1

	toolDefs := a.toolDefinitions()

	maxIterations := a.Config.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	var (
		finalResp *llm.Response
		iter      int
	)
	for iter = 0; iter < maxIterations; iter++ {
		req := &llm.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Temperature: a.Config.Temperature,
			MaxTokens:   a.Config.MaxTokens,
		}
		for _, mw := range a.Middleware {
			if err := mw.BeforeLLMCall(ctx, req); err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return Message{}, err
			}
		}
		messages = req.Messages

		response, err := a.chat(ctx, req)
		if err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("LLM call failed: %w", err)
		}
		for _, mw := range a.Middleware {
			if err := mw.AfterLLMResponse(ctx, response); err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return Message{}, err
			}
		}
		finalResp = response

		if len(response.ToolCalls) == 0 || a.Tools == nil {
			break
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, tc := range response.ToolCalls {
			result, err := a.executeTool(ctx, tc)
			if err != nil {
				span.SetStatus(obs.StatusCodeError, err.Error())
				return Message{}, err
			}
			logger.Debug("tool call", "tool", tc.Function.Name, "result", result)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}
	}

	if finalResp == nil {
		span.SetStatus(obs.StatusCodeError, "no response")
		return Message{}, fmt.Errorf("no response from model")
	}
	if len(finalResp.ToolCalls) > 0 && a.Tools != nil {
		span.SetStatus(obs.StatusCodeError, ErrMaxIterations.Error())
		return Message{}, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIterations)
	}

	messages = append(messages, llm.Message{Role: "assistant", Content: finalResp.Content})
	if a.Mem != nil {
		entries := make([]memory.Message, 0, len(messages)-newFrom)
		for _, m := range messages[newFrom:] {
			entries = append(entries, toMemory(m))
		}
		if err := a.Mem.AppendMessage(ctx, key, entries...); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, fmt.Errorf("failed to store transcript: %w", err)
		}
	}

	iterations := iter + 1
	if iterations > maxIterations {
		iterations = maxIterations
	}
	result := Message{
		Role:    "assistant",
		Content: finalResp.Content,
		Meta: map[string]string{
			"session":    key,
			"iterations": strconv.Itoa(iterations),
			"model":      finalResp.Model,
		},
	}
	for _, mw := range a.Middleware {
		if err := mw.AfterRun(ctx, result); err != nil {
			span.SetStatus(obs.StatusCodeError, err.Error())
			return Message{}, err
		}
	}

	logger.Info("agent finished", "iterations", iterations)
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

func (a *ChatAgent) toolDefinitions() []llm.Tool {
	if a.Tools == nil {
		return nil
	}
	var defs []llm.Tool
	for _, name := range a.Tools.List() {
		if t, ok := a.Tools.Get(name); ok {
			defs = append(defs, llm.Tool{
				Type: "function",
				Function: llm.ToolFunction{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Schema(),
				},
			})
		}
	}
	return defs
}

// chat makes one model call and records request, latency and token metrics.
func (a *ChatAgent) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	labels := map[string]string{
		"provider": string(a.Model.Provider()),
		"model":    a.Model.Model(),
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute(obs.AttrProvider, labels["provider"])
	span.SetAttribute(obs.AttrModel, labels["model"])

	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	resp, err := a.Model.Chat(ctx, req)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		errType := "unknown"
		if le, ok := llm.IsLLMError(err); ok {
			errType = string(le.Type)
		}
		obs.MetricsImpl.RecordError(errType, labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
		a.Logger.Debug("llm usage", "agent", a.Config.Name, "model", resp.Model,
			"tokens", tokens, "cost_usd", resp.Usage.Cost, "latency", resp.Latency)
	}
	if tokens == 0 {
		tokens = llm.CountMessages(a.Tokens, req.Messages) + a.Tokens(resp.Content)
	}
	obs.MetricsImpl.IncrementTokensUsed(tokens, labels)
	span.SetStatus(obs.StatusCodeOk, "")
	return resp, nil
}

// executeTool runs one tool call. Tool failures and unknown tools are handed
// back to the model as the call's result; only middleware can abort the run.
func (a *ChatAgent) executeTool(ctx context.Context, tc llm.ToolCall) (string, error) {
	name := tc.Function.Name
	input := toolInput(tc.Function.Arguments)

	for _, mw := range a.Middleware {
		if err := mw.BeforeToolExecute(ctx, name, input); err != nil {
			return "", err
		}
	}

	result, execErr := a.Tools.Execute(ctx, name, input)
	if execErr != nil {
		result = fmt.Sprintf("error: %v", execErr)
	}

	for _, mw := range a.Middleware {
		if err := mw.AfterToolExecute(ctx, name, result, execErr); err != nil {
			return "", err
		}
	}
	return result, nil
}

// toolInput unwraps the {"input": "..."} envelope some models use; any other
// argument object is passed through for the tool to decode.
func toolInput(args string) string {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(args), &obj); err == nil && len(obj) == 1 {
		if v, ok := obj["input"].(string); ok {
			return v
		}
	}
	return args
}

func toMemory(m llm.Message) memory.Message {
	out := memory.Message{
		Role:       m.Role,
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, memory.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func fromMemory(m memory.Message) llm.Message {
	out := llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: llm.Function{Name: tc.Name, Arguments: tc.Arguments},
		})
	}
	return out
}
