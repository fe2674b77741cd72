package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/agent/doctors"
	"github.com/KamdynS/heartcrew/classifier"
	"github.com/KamdynS/heartcrew/config"
	"github.com/KamdynS/heartcrew/crew"
	"github.com/KamdynS/heartcrew/display"
	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/history"
	"github.com/KamdynS/heartcrew/history/postgres"
	"github.com/KamdynS/heartcrew/llm"
	"github.com/KamdynS/heartcrew/llm/anthropic"
	"github.com/KamdynS/heartcrew/llm/openai"
	"github.com/KamdynS/heartcrew/memory"
	"github.com/KamdynS/heartcrew/memory/inmemory"
	"github.com/KamdynS/heartcrew/memory/redis"
	"github.com/KamdynS/heartcrew/outcome"
	"github.com/KamdynS/heartcrew/tools"
	"github.com/KamdynS/heartcrew/tools/heart"
)

// tokenCounter loads the tokenizer lazily; tests swap it out.
var tokenCounter = llm.TiktokenCounter

// app holds everything a command needs, built once from the config.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	registry  *tools.DefaultRegistry
	predictor *heart.Predictor
	clinic    *crew.Clinic
	history   history.Store
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildTools wires the classifier, predictor and image display into a
// registry. It needs no API key.
func buildTools(cfg *config.Config, logger *log.Logger) (*tools.DefaultRegistry, *heart.Predictor, error) {
	clf, artifact, err := buildClassifier(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	p := heart.NewPredictor(heart.PredictorConfig{
		Classifier: clf,
		Schema:     artifact.Schema(),
		Labels:     artifact.LabelTable(),
		Fill:       cfg.FillValue,
		Baseline:   features.SampleMeasurements(),
		Logger:     logger,
	})

	var viewer display.Viewer = display.Discard{}
	if cfg.ShowImages {
		viewer = display.System{}
	}
	img := heart.NewImageDisplay(outcome.DefaultAssets(), cfg.ImageDir, viewer, logger)

	reg := tools.NewRegistry()
	if err := heart.Register(reg, p, img); err != nil {
		return nil, nil, err
	}
	return reg, p, nil
}

// buildClassifier serves the configured artifact remotely when it has an
// endpoint; otherwise the demo classifier answers with a fixed class.
func buildClassifier(cfg *config.Config, logger *log.Logger) (classifier.Classifier, *classifier.Artifact, error) {
	artifact := classifier.DemoArtifact()
	if cfg.ModelArtifact != "" {
		a, err := classifier.LoadArtifact(cfg.ModelArtifact)
		if err != nil {
			return nil, nil, err
		}
		artifact = a
	}
	if cfg.ClassifierURL != "" {
		artifact.Endpoint = cfg.ClassifierURL
	}
	if artifact.Endpoint == "" {
		logger.Warn("no model endpoint configured, using demo classifier", "class", cfg.DemoClass)
		return classifier.Fixed{Code: outcome.ClassCode(cfg.DemoClass)}, artifact, nil
	}
	r, err := classifier.NewRemote(artifact, cfg.ClassifierTimeout)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using remote classifier", "endpoint", artifact.Endpoint, "model", artifact.Model, "version", artifact.Version)
	return r, artifact, nil
}

func newClient(cfg *config.Config, provider, model string) (llm.Client, error) {
	switch llm.Provider(provider) {
	case llm.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey(provider),
			Model:       model,
			Temperature: cfg.Temperature,
			RetryConfig: cfg.Retry,
		})
	case llm.ProviderGroq, llm.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			Provider:    llm.Provider(provider),
			APIKey:      cfg.APIKey(provider),
			Model:       model,
			Temperature: cfg.Temperature,
			RetryConfig: cfg.Retry,
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// buildClient returns the primary client, wrapped with the fallback
// provider when one is configured and has a key.
func buildClient(cfg *config.Config, logger *log.Logger) (llm.Client, error) {
	primary, err := newClient(cfg, cfg.Provider, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", cfg.Provider, err)
	}
	if cfg.FallbackProvider == "" {
		return primary, nil
	}
	if cfg.APIKey(cfg.FallbackProvider) == "" {
		logger.Warn("fallback provider has no API key, ignoring", "provider", cfg.FallbackProvider, "var", config.KeyVar(cfg.FallbackProvider))
		return primary, nil
	}
	secondary, err := newClient(cfg, cfg.FallbackProvider, cfg.FallbackModel)
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", cfg.FallbackProvider, err)
	}
	return llm.NewFallbackClient(primary, secondary, logger), nil
}

func (a *app) buildMemory() (memory.ConversationStore, error) {
	if a.cfg.RedisURL == "" {
		return inmemory.NewConversationStore(), nil
	}
	cs, err := redis.Open(a.cfg.RedisURL, "heartcrew", a.cfg.TranscriptTTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = cs.Close() })
	return cs, nil
}

func (a *app) buildHistory(ctx context.Context) (history.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return history.NewMemoryStore(), nil
	}
	s, err := postgres.Open(ctx, a.cfg.DatabaseURL, "")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// newApp builds the full crew. withAgents is false for commands that only
// exercise the tools.
func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger, withAgents bool) (*app, error) {
	reg, p, err := buildTools(cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, registry: reg, predictor: p}
	if !withAgents {
		return a, nil
	}

	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client, err := buildClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := a.buildMemory()
	if err != nil {
		a.Close()
		return nil, err
	}
	hist, err := a.buildHistory(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = hist

	opts := doctors.Options{
		MaxIterations: cfg.MaxIterations,
		Timeout:       cfg.AgentTimeout,
		Temperature:   &cfg.Temperature,
		MaxInputChars: cfg.MaxInputChars,
		Logger:        logger,
		Tokens:        tokenCounter(),
	}
	diag, err1 := doctors.New(doctors.DiagnosisDoctor(), client, reg, store, opts)
	treat, err2 := doctors.New(doctors.TreatmentDoctor(), client, reg, store, opts)
	if err := errors.Join(err1, err2); err != nil {
		a.Close()
		return nil, err
	}
	a.clinic = &crew.Clinic{
		Diagnosis: diag,
		Treatment: treat,
		Predictor: p,
		History:   hist,
		Logger:    logger,
	}
	return a, nil
}
