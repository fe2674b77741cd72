package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("", filepath.Join(t.TempDir(), "missing.env"), env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "groq" || cfg.FillValue != 0 || cfg.MaxIterations != 5 || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.RequireAPIKey(); err == nil || !strings.Contains(err.Error(), "GROQ_API_KEY not found") {
		t.Fatalf("want missing key error, got %v", err)
	}
}

func TestLoadFrom_Precedence(t *testing.T) {
	file := write(t, "heartcrew.yaml", `
provider: openai
model: gpt-4o-mini
fill_value: 2
agent_timeout: 45s
image_dir: /srv/images
retry:
  max_retries: 1
`)
	dotenv := write(t, ".env", "GROQ_API_KEY=from-dotenv\nOPENAI_API_KEY=dotenv-openai\nHEARTCREW_MAX_ITERATIONS=7\n")

	cfg, err := LoadFrom(file, dotenv, env(map[string]string{
		"OPENAI_API_KEY":       "from-env",
		"HEARTCREW_FILL_VALUE": "0.5",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" || cfg.ImageDir != "/srv/images" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.AgentTimeout != 45*time.Second || cfg.Retry.MaxRetries != 1 {
		t.Fatalf("durations/nested not applied: %+v", cfg)
	}
	if cfg.FillValue != 0.5 {
		t.Fatalf("env should override yaml fill, got %v", cfg.FillValue)
	}
	if cfg.MaxIterations != 7 || cfg.GroqAPIKey != "from-dotenv" {
		t.Fatalf(".env not applied: %+v", cfg)
	}
	if cfg.OpenAIAPIKey != "from-env" {
		t.Fatalf("environment should win over .env, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.APIKey(cfg.Provider) != "from-env" || cfg.RequireAPIKey() != nil {
		t.Fatal("openai key should satisfy RequireAPIKey")
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad provider", map[string]string{"HEARTCREW_PROVIDER": "cohere"}, "Provider"},
		{"bad number", map[string]string{"HEARTCREW_FILL_VALUE": "two"}, "HEARTCREW_FILL_VALUE"},
		{"bad duration", map[string]string{"HEARTCREW_AGENT_TIMEOUT": "soon"}, "HEARTCREW_AGENT_TIMEOUT"},
		{"bad log format", map[string]string{"HEARTCREW_LOG_FORMAT": "xml"}, "LogFormat"},
		{"fallback equals primary", map[string]string{"HEARTCREW_FALLBACK_PROVIDER": "groq"}, "FallbackProvider"},
		{"unknown model", map[string]string{"HEARTCREW_MODEL": "gpt-2"}, "gpt-2"},
		{"iterations out of range", map[string]string{"HEARTCREW_MAX_ITERATIONS": "0"}, "MaxIterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom("", "", env(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFrom_BadYAML(t *testing.T) {
	file := write(t, "bad.yaml", "provider: [groq")
	if _, err := LoadFrom(file, "", env(nil)); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), "", env(nil)); err == nil {
		t.Fatal("expected read error")
	}
}

func TestKeyVar(t *testing.T) {
	for p, want := range map[string]string{"groq": "GROQ_API_KEY", "openai": "OPENAI_API_KEY", "anthropic": "ANTHROPIC_API_KEY"} {
		if got := KeyVar(p); got != want {
			t.Fatalf("KeyVar(%s) = %s", p, got)
		}
	}
}
