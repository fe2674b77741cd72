package doctors

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/agent/core"
	"github.com/KamdynS/heartcrew/llm"
	"github.com/KamdynS/heartcrew/tools"
)

type stubTool struct{ name string }

func (s stubTool) Name() string                   { return s.name }
func (s stubTool) Description() string            { return s.name }
func (s stubTool) Schema() map[string]interface{} { return map[string]interface{}{"type": "object"} }
func (s stubTool) Execute(ctx context.Context, input string) (string, error) {
	return s.name, nil
}

type recordingClient struct{ reqs []*llm.ChatRequest }

func (c *recordingClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	c.reqs = append(c.reqs, req)
	return &llm.Response{Content: "Healthy heart"}, nil
}
func (c *recordingClient) Model() string          { return "stub" }
func (c *recordingClient) Provider() llm.Provider { return llm.ProviderGroq }
func (c *recordingClient) Validate() error        { return nil }

func heartRegistry() *tools.DefaultRegistry {
	reg := tools.NewRegistry()
	_ = reg.Register(stubTool{PredictorTool})
	_ = reg.Register(stubTool{ImageTool})
	_ = reg.Register(stubTool{"unrelated"})
	return reg
}

func TestSystemPrompt(t *testing.T) {
	p := DiagnosisDoctor().SystemPrompt()
	for _, want := range []string{"Diagnosis Doctor", "20 years", "'Sick with [diagnosis]'", PredictorTool, "cannot delegate"} {
		if !strings.Contains(p, want) {
			t.Fatalf("diagnosis prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(TreatmentDoctor().SystemPrompt(), "tools") {
		t.Fatal("treatment doctor has no tools to mention")
	}
}

func TestNew_ToolSubset(t *testing.T) {
	client := &recordingClient{}
	opts := Options{Logger: log.New(io.Discard)}

	diag, err := New(DiagnosisDoctor(), client, heartRegistry(), nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diag.Name() != "Diagnosis Doctor" {
		t.Fatalf("unexpected name %q", diag.Name())
	}
	names := diag.Tools.List()
	if len(names) != 2 || names[0] != ImageTool || names[1] != PredictorTool {
		t.Fatalf("unexpected toolset %v", names)
	}

	treat, err := New(TreatmentDoctor(), client, heartRegistry(), nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if treat.Tools != nil {
		t.Fatal("treatment doctor should have no tools")
	}
	if _, err := treat.Run(context.Background(), core.Message{Content: "plan please"}); err != nil {
		t.Fatal(err)
	}
	if len(client.reqs) != 1 || len(client.reqs[0].Tools) != 0 {
		t.Fatalf("treatment request should carry no tools")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(DiagnosisDoctor(), nil, heartRegistry(), nil, Options{}); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := New(DiagnosisDoctor(), &recordingClient{}, nil, nil, Options{}); err == nil {
		t.Fatal("expected error without registry")
	}
	if _, err := New(DiagnosisDoctor(), &recordingClient{}, tools.NewRegistry(), nil, Options{}); err == nil {
		t.Fatal("expected error for missing tools")
	}
}

func TestNew_Guardrails(t *testing.T) {
	client := &recordingClient{}
	a, err := New(TreatmentDoctor(), client, nil, nil, Options{MaxInputChars: 4, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Run(context.Background(), core.Message{Content: "abcdefgh"}); err != nil {
		t.Fatal(err)
	}
	msgs := client.reqs[0].Messages
	if got := msgs[len(msgs)-1].Content; got != "abcd" {
		t.Fatalf("input should be capped, got %q", got)
	}
}
