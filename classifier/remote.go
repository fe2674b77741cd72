package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/outcome"
)

// Remote scores vectors against a model served over HTTP.
type Remote struct {
	endpoint   string
	columns    []string
	httpClient *http.Client
}

type predictRequest struct {
	Columns   []string    `json:"columns"`
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []int  `json:"predictions"`
	Error       string `json:"error,omitempty"`
}

// NewRemote returns a client for the artifact's serving endpoint.
func NewRemote(a *Artifact, timeout time.Duration) (*Remote, error) {
	if a == nil || a.Endpoint == "" {
		return nil, fmt.Errorf("model artifact has no serving endpoint")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		endpoint:   strings.TrimRight(a.Endpoint, "/"),
		columns:    append([]string(nil), a.Columns...),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Predict posts one instance to {endpoint}/predict.
func (r *Remote) Predict(ctx context.Context, v features.Vector) (outcome.ClassCode, error) {
	body, err := json.Marshal(predictRequest{
		Columns:   r.columns,
		Instances: [][]float64{v},
	})
	if err != nil {
		return 0, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call model server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode model response: %w", err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("model server: %s", out.Error)
	}
	if len(out.Predictions) == 0 {
		return 0, ErrNoPrediction
	}
	return outcome.ClassCode(out.Predictions[0]), nil
}
