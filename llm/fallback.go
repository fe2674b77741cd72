package llm

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// FallbackClient sends every request to Primary and retries it once on
// Secondary when the primary fails with a retryable or authentication error.
type FallbackClient struct {
	Primary   Client
	Secondary Client
	Logger    *log.Logger
}

// NewFallbackClient returns primary unchanged when secondary is nil.
func NewFallbackClient(primary, secondary Client, logger *log.Logger) Client {
	if secondary == nil {
		return primary
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FallbackClient{Primary: primary, Secondary: secondary, Logger: logger}
}

func (f *FallbackClient) shouldFallback(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return IsRetryableError(err) || IsAuthenticationError(err)
}

func (f *FallbackClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	resp, err := f.Primary.Chat(ctx, req)
	if err == nil || !f.shouldFallback(err) {
		return resp, err
	}
	f.Logger.Warn("primary model failed, falling back",
		"primary", f.Primary.Provider(), "secondary", f.Secondary.Provider(), "err", err)

	// The secondary has its own model catalogue.
	cp := *req
	cp.Model = ""
	return f.Secondary.Chat(ctx, &cp)
}

func (f *FallbackClient) Model() string      { return f.Primary.Model() }
func (f *FallbackClient) Provider() Provider { return f.Primary.Provider() }

func (f *FallbackClient) Validate() error {
	if f.Primary == nil {
		return errors.New("nil primary client")
	}
	if err := f.Primary.Validate(); err != nil {
		return err
	}
	return f.Secondary.Validate()
}
