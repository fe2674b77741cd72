package llm

import (
	"fmt"
	"sort"
)

// Provider represents LLM providers
type Provider string

const (
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Model represents an LLM model with its properties
type Model struct {
	Provider    Provider `json:"provider"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ContextSize int      `json:"context_size"`
	InputCost   float64  `json:"input_cost"`  // USD per 1M input tokens
	OutputCost  float64  `json:"output_cost"` // USD per 1M output tokens
	ToolUse     bool     `json:"tool_use"`
}

const (
	ModelLlama33Versatile = "llama-3.3-70b-versatile"
	ModelLlama31Instant   = "llama-3.1-8b-instant"

	ModelGPT4o     = "gpt-4o"
	ModelGPT4oMini = "gpt-4o-mini"

	ModelClaude35Sonnet = "claude-3-5-sonnet-20241022"
	ModelClaude35Haiku  = "claude-3-5-haiku-20241022"
)

// AvailableModels is the catalogue of models the crew can be pointed at
var AvailableModels = map[string]Model{
	ModelLlama33Versatile: {
		Provider: ProviderGroq, Name: ModelLlama33Versatile, DisplayName: "Llama 3.3 70B Versatile",
		ContextSize: 128000, InputCost: 0.59, OutputCost: 0.79, ToolUse: true,
	},
	ModelLlama31Instant: {
		Provider: ProviderGroq, Name: ModelLlama31Instant, DisplayName: "Llama 3.1 8B Instant",
		ContextSize: 128000, InputCost: 0.05, OutputCost: 0.08, ToolUse: true,
	},
	ModelGPT4o: {
		Provider: ProviderOpenAI, Name: ModelGPT4o, DisplayName: "GPT-4o",
		ContextSize: 128000, InputCost: 5.0, OutputCost: 15.0, ToolUse: true,
	},
	ModelGPT4oMini: {
		Provider: ProviderOpenAI, Name: ModelGPT4oMini, DisplayName: "GPT-4o Mini",
		ContextSize: 128000, InputCost: 0.15, OutputCost: 0.60, ToolUse: true,
	},
	ModelClaude35Sonnet: {
		Provider: ProviderAnthropic, Name: ModelClaude35Sonnet, DisplayName: "Claude 3.5 Sonnet",
		ContextSize: 200000, InputCost: 3.0, OutputCost: 15.0, ToolUse: true,
	},
	ModelClaude35Haiku: {
		Provider: ProviderAnthropic, Name: ModelClaude35Haiku, DisplayName: "Claude 3.5 Haiku",
		ContextSize: 200000, InputCost: 0.8, OutputCost: 4.0, ToolUse: true,
	},
}

// DefaultModel returns the model used for a provider when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return ModelGPT4oMini
	case ProviderAnthropic:
		return ModelClaude35Haiku
	default:
		return ModelLlama33Versatile
	}
}

// GetModel returns model metadata for a given model name
func GetModel(name string) (Model, error) {
	model, exists := AvailableModels[name]
	if !exists {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return model, nil
}

// ModelsByProvider returns the provider's models sorted by name
func ModelsByProvider(provider Provider) []Model {
	var models []Model
	for _, model := range AvailableModels {
		if model.Provider == provider {
			models = append(models, model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// ValidateModel checks that name is catalogued under provider
func ValidateModel(provider Provider, name string) error {
	m, err := GetModel(name)
	if err != nil {
		return err
	}
	if m.Provider != provider {
		return fmt.Errorf("model %s is not a %s model", name, provider)
	}
	return nil
}

func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}

// EstimateCost estimates the cost for given token counts
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	inputCost := (float64(inputTokens) / 1000000) * m.InputCost
	outputCost := (float64(outputTokens) / 1000000) * m.OutputCost
	return inputCost + outputCost
}
