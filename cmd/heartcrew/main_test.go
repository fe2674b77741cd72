package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/classifier"
	"github.com/KamdynS/heartcrew/config"
	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/llm"
	"github.com/KamdynS/heartcrew/memory/inmemory"
	"github.com/KamdynS/heartcrew/tools/heart"
)

var quiet = log.New(io.Discard)

func init() {
	tokenCounter = func() llm.TokenCounter { return llm.ApproxTokens }
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg, err := config.LoadFrom("", "", lookup)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.ImageDir = t.TempDir()
	cfg.ShowImages = false
	return cfg
}

func TestInitProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clinic")
	if err := initProject(dir, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := initProject(dir, false); err == nil {
		t.Fatal("expected error when files exist")
	}
	if err := initProject(dir, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	if fi, err := os.Stat(filepath.Join(dir, "images")); err != nil || !fi.IsDir() {
		t.Fatalf("images dir missing: %v", err)
	}

	cfg, err := config.LoadFrom(filepath.Join(dir, "heartcrew.yaml"), filepath.Join(dir, ".env.example"), nil)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.ModelArtifact != "model.yaml" {
		t.Fatalf("unexpected artifact path %q", cfg.ModelArtifact)
	}
	a, err := classifier.LoadArtifact(filepath.Join(dir, "model.yaml"))
	if err != nil {
		t.Fatalf("generated artifact does not load: %v", err)
	}
	if len(a.Columns) != len(features.DemoColumns()) {
		t.Fatalf("artifact has %d columns", len(a.Columns))
	}
}

func TestBuildClassifier(t *testing.T) {
	cfg := testConfig(t, map[string]string{"HEARTCREW_DEMO_CLASS": "11"})
	clf, artifact, err := buildClassifier(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := clf.(classifier.Fixed); !ok {
		t.Fatalf("expected demo classifier, got %T", clf)
	}
	if artifact.Version != "demo" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}

	cfg.ClassifierURL = "http://127.0.0.1:9000"
	clf, _, err = buildClassifier(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := clf.(*classifier.Remote); !ok {
		t.Fatalf("expected remote classifier, got %T", clf)
	}

	cfg.ModelArtifact = filepath.Join(t.TempDir(), "missing.yaml")
	if _, _, err := buildClassifier(cfg, quiet); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestBuildTools_RemoteClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": []int{5}})
	}))
	defer srv.Close()

	cfg := testConfig(t, map[string]string{"HEARTCREW_CLASSIFIER_URL": srv.URL})
	reg, p, err := buildTools(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	pred, err := p.Predict(context.Background(), "Age: 60")
	if err != nil {
		t.Fatal(err)
	}
	if pred.Label != "NSTEMI/ACS" {
		t.Fatalf("unexpected label %q", pred.Label)
	}
	if names := reg.List(); len(names) != 2 {
		t.Fatalf("expected both tools registered, got %v", names)
	}
}

func TestPredictSample(t *testing.T) {
	cfg := testConfig(t, map[string]string{"HEARTCREW_DEMO_CLASS": "9"})
	var buf bytes.Buffer
	if err := predictSample(context.Background(), &buf, cfg, quiet); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Predicted Diagnosis: Recurrent MI\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPredictSample_SendsMinimalPanel(t *testing.T) {
	var sent struct {
		Columns   []string    `json:"columns"`
		Instances [][]float64 `json:"instances"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": []int{12}})
	}))
	defer srv.Close()

	cfg := testConfig(t, map[string]string{"HEARTCREW_CLASSIFIER_URL": srv.URL, "HEARTCREW_FILL_VALUE": "2"})
	var buf bytes.Buffer
	if err := predictSample(context.Background(), &buf, cfg, quiet); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Predicted Diagnosis: Inferoposterior MI") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if len(sent.Instances) != 1 || len(sent.Instances[0]) != len(sent.Columns) {
		t.Fatalf("unexpected request %+v", sent)
	}
	sample := features.MinimalSample()
	for i, name := range sent.Columns {
		want, ok := sample[name]
		if !ok {
			// the standalone path ignores the configured tool fill
			want = features.DefaultFill
		}
		if got := sent.Instances[0][i]; got != want {
			t.Fatalf("%s: want %v got %v", name, want, got)
		}
	}
}

func TestPredictSample_ClassifierFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(t, map[string]string{"HEARTCREW_CLASSIFIER_URL": srv.URL})
	err := predictSample(context.Background(), io.Discard, cfg, quiet)
	if err == nil || !strings.Contains(err.Error(), "prediction failed") {
		t.Fatalf("expected prediction error, got %v", err)
	}
}

func TestCheckTools(t *testing.T) {
	cfg := testConfig(t, nil)
	reg, _, err := buildTools(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if !checkTools(context.Background(), &buf, reg) {
		t.Fatalf("tools should pass:\n%s", buf.String())
	}
	out := buf.String()
	for _, want := range []string{"TEST SUMMARY", heart.PredictorName, heart.ImageName, "ML Model Prediction: Anterior Wall MI"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t, nil)
	if _, err := newApp(context.Background(), cfg, quiet, true); err == nil || !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	cfg = testConfig(t, map[string]string{
		"GROQ_API_KEY":                "gsk-test",
		"ANTHROPIC_API_KEY":           "sk-ant-test",
		"HEARTCREW_FALLBACK_PROVIDER": "anthropic",
	})
	a, err := newApp(context.Background(), cfg, quiet, true)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()
	if a.clinic == nil || a.clinic.Diagnosis == nil || a.clinic.Treatment == nil {
		t.Fatal("clinic not wired")
	}
	if a.history == nil || a.clinic.History != a.history {
		t.Fatal("history not wired")
	}

	client, err := buildClient(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := client.(*llm.FallbackClient); !ok {
		t.Fatalf("expected fallback client, got %T", client)
	}
	if client.Provider() != llm.ProviderGroq {
		t.Fatalf("primary should be groq, got %s", client.Provider())
	}
}

func TestBuildClient_FallbackWithoutKey(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"OPENAI_API_KEY":              "sk-test",
		"HEARTCREW_PROVIDER":          "openai",
		"HEARTCREW_FALLBACK_PROVIDER": "groq",
	})
	client, err := buildClient(cfg, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := client.(*llm.FallbackClient); ok {
		t.Fatal("fallback without a key should be ignored")
	}
}

func TestBuildMemoryDefaultsToInMemory(t *testing.T) {
	a := &app{cfg: testConfig(t, nil)}
	cs, err := a.buildMemory()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cs.(*inmemory.ConversationStore); !ok {
		t.Fatalf("expected in-memory store, got %T", cs)
	}
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	got, err := prompt(strings.NewReader("  chest pain at rest \n"), &out, "symptoms: ")
	if err != nil || got != "chest pain at rest" {
		t.Fatalf("got %q, %v", got, err)
	}
	if out.String() != "symptoms: " {
		t.Fatalf("unexpected prompt %q", out.String())
	}
	if got, err := prompt(strings.NewReader("no newline"), io.Discard, ""); err != nil || got != "no newline" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := prompt(strings.NewReader(""), io.Discard, ""); err == nil {
		t.Fatal("expected error on empty input")
	}
}

func TestRenderMarkdownPlain(t *testing.T) {
	if got := renderMarkdown("**rest**", true); got != "**rest**" {
		t.Fatalf("plain output changed: %q", got)
	}
	if got := renderMarkdown("# Plan", false); !strings.Contains(got, "Plan") {
		t.Fatalf("rendered output lost text: %q", got)
	}
}
