// Package config loads the heartcrew settings once at startup. Values come
// from defaults, an optional YAML file, a .env file and the environment, in
// increasing precedence. Nothing else in the module reads the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/llm"
)

// Config is the resolved configuration.
type Config struct {
	Provider         string  `yaml:"provider" validate:"oneof=groq openai anthropic"`
	Model            string  `yaml:"model"`
	FallbackProvider string  `yaml:"fallback_provider" validate:"omitempty,oneof=groq openai anthropic,nefield=Provider"`
	FallbackModel    string  `yaml:"fallback_model"`
	Temperature      float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// API keys are only read from the environment
	GroqAPIKey      string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`

	MaxIterations int             `yaml:"max_iterations" validate:"gte=1,lte=20"`
	AgentTimeout  time.Duration   `yaml:"agent_timeout" validate:"gte=0"`
	MaxInputChars int             `yaml:"max_input_chars" validate:"gte=0"`
	Retry         llm.RetryConfig `yaml:"retry"`

	ModelArtifact     string        `yaml:"model_artifact"`
	ClassifierURL     string        `yaml:"classifier_url" validate:"omitempty,url"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout" validate:"gte=0"`
	DemoClass         int           `yaml:"demo_class" validate:"gte=0"`
	FillValue         float64       `yaml:"fill_value"`
	ImageDir          string        `yaml:"image_dir" validate:"required"`
	ShowImages        bool          `yaml:"show_images"`

	RedisURL      string        `yaml:"redis_url" validate:"omitempty,url"`
	TranscriptTTL time.Duration `yaml:"transcript_ttl" validate:"gte=0"`
	DatabaseURL   string        `yaml:"database_url"`

	HTTPAddr  string `yaml:"http_addr" validate:"required"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json logfmt"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:          string(llm.ProviderGroq),
		Temperature:       0.2,
		MaxIterations:     5,
		AgentTimeout:      2 * time.Minute,
		Retry:             llm.DefaultRetryConfig(),
		ClassifierTimeout: 10 * time.Second,
		FillValue:         features.DefaultFill,
		ImageDir:          "images",
		ShowImages:        true,
		TranscriptTTL:     24 * time.Hour,
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads path (skipped when empty), then ".env" and the process
// environment.
func Load(path string) (*Config, error) {
	return LoadFrom(path, ".env", os.LookupEnv)
}

// LoadFrom is Load with an explicit env file and environment. Variables in
// envFile never override ones lookup finds.
func LoadFrom(path, envFile string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}
	get := func(key string) (string, bool) {
		if lookup != nil {
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(get LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := get(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := get(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("GROQ_API_KEY", &c.GroqAPIKey)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	str("REDIS_URL", &c.RedisURL)
	str("DATABASE_URL", &c.DatabaseURL)

	str("HEARTCREW_PROVIDER", &c.Provider)
	str("HEARTCREW_MODEL", &c.Model)
	str("HEARTCREW_FALLBACK_PROVIDER", &c.FallbackProvider)
	str("HEARTCREW_FALLBACK_MODEL", &c.FallbackModel)
	str("HEARTCREW_MODEL_ARTIFACT", &c.ModelArtifact)
	str("HEARTCREW_CLASSIFIER_URL", &c.ClassifierURL)
	str("HEARTCREW_IMAGE_DIR", &c.ImageDir)
	str("HEARTCREW_HTTP_ADDR", &c.HTTPAddr)
	str("HEARTCREW_LOG_LEVEL", &c.LogLevel)
	str("HEARTCREW_LOG_FORMAT", &c.LogFormat)

	parse("HEARTCREW_TEMPERATURE", func(v string) (err error) {
		c.Temperature, err = strconv.ParseFloat(v, 64)
		return
	})
	parse("HEARTCREW_FILL_VALUE", func(v string) (err error) {
		c.FillValue, err = strconv.ParseFloat(v, 64)
		return
	})
	parse("HEARTCREW_MAX_ITERATIONS", func(v string) (err error) {
		c.MaxIterations, err = strconv.Atoi(v)
		return
	})
	parse("HEARTCREW_MAX_INPUT_CHARS", func(v string) (err error) {
		c.MaxInputChars, err = strconv.Atoi(v)
		return
	})
	parse("HEARTCREW_DEMO_CLASS", func(v string) (err error) {
		c.DemoClass, err = strconv.Atoi(v)
		return
	})
	parse("HEARTCREW_AGENT_TIMEOUT", func(v string) (err error) {
		c.AgentTimeout, err = time.ParseDuration(v)
		return
	})
	parse("HEARTCREW_CLASSIFIER_TIMEOUT", func(v string) (err error) {
		c.ClassifierTimeout, err = time.ParseDuration(v)
		return
	})
	parse("HEARTCREW_TRANSCRIPT_TTL", func(v string) (err error) {
		c.TranscriptTTL, err = time.ParseDuration(v)
		return
	})
	parse("HEARTCREW_SHOW_IMAGES", func(v string) (err error) {
		c.ShowImages, err = strconv.ParseBool(v)
		return
	})

	c.Provider = strings.ToLower(c.Provider)
	c.FallbackProvider = strings.ToLower(c.FallbackProvider)
	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that the chosen model exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Model != "" {
		if err := llm.ValidateModel(llm.Provider(c.Provider), c.Model); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// APIKey returns the key configured for provider.
func (c *Config) APIKey(provider string) string {
	switch llm.Provider(provider) {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return c.GroqAPIKey
	}
}

// KeyVar names the environment variable holding provider's key.
func KeyVar(provider string) string {
	switch llm.Provider(provider) {
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

// RequireAPIKey fails when the primary provider has no key.
func (c *Config) RequireAPIKey() error {
	if c.APIKey(c.Provider) == "" {
		return fmt.Errorf("%s not found in environment variables", KeyVar(c.Provider))
	}
	return nil
}
