package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/outcome"
	"gopkg.in/yaml.v3"
)

// Artifact describes a persisted model: the feature order it was trained on,
// optional label overrides and where it is served.
type Artifact struct {
	Version  string            `json:"version" yaml:"version"`
	Model    string            `json:"model" yaml:"model"`
	Columns  []string          `json:"columns" yaml:"columns"`
	Labels   map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Endpoint string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// LoadArtifact reads a JSON or YAML artifact description. The format is
// chosen by file extension.
func LoadArtifact(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, fmt.Errorf("model artifact %s is empty", path)
	}

	var a Artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &a)
	default:
		err = json.Unmarshal(b, &a)
	}
	if err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return &a, nil
}

// DemoArtifact describes the bundled demonstration model.
func DemoArtifact() *Artifact {
	return &Artifact{
		Version: "demo",
		Model:   "random-forest",
		Columns: features.DemoColumns(),
	}
}

// Validate checks the artifact is usable for assembly and label resolution.
func (a *Artifact) Validate() error {
	if len(a.Columns) == 0 {
		return fmt.Errorf("no feature columns")
	}
	seen := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("blank feature column")
		}
		if seen[c] {
			return fmt.Errorf("duplicate feature column %q", c)
		}
		seen[c] = true
	}
	for k := range a.Labels {
		if _, err := strconv.Atoi(k); err != nil {
			return fmt.Errorf("label key %q is not a class code", k)
		}
	}
	return nil
}

// Schema returns the feature order the model expects.
func (a *Artifact) Schema() features.Schema {
	return features.NewSchema(a.Columns...)
}

// LabelTable returns the default labels with the artifact's overrides applied.
func (a *Artifact) LabelTable() outcome.LabelTable {
	t := outcome.DefaultLabels()
	for k, v := range a.Labels {
		code, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		t[outcome.ClassCode(code)] = outcome.Label(v)
	}
	return t
}
