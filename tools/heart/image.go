package heart

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/display"
	"github.com/KamdynS/heartcrew/outcome"
	"github.com/KamdynS/heartcrew/tools"
)

// ImageInput is the image tool's argument object.
type ImageInput struct {
	Condition string `json:"condition" jsonschema:"description=The heart condition diagnosis to display image for"`
}

// DisplayStatus classifies an image display attempt.
type DisplayStatus string

const (
	StatusShown   DisplayStatus = "shown"
	StatusMissing DisplayStatus = "missing"
	StatusNoAsset DisplayStatus = "no_asset"
	StatusFailed  DisplayStatus = "failed"
)

// DisplayResult reports what happened to one condition's image.
type DisplayResult struct {
	Condition string        `json:"condition"`
	Status    DisplayStatus `json:"status"`
	Path      string        `json:"path,omitempty"`
	Err       error         `json:"-"`
}

func (r DisplayResult) String() string {
	switch r.Status {
	case StatusShown:
		return fmt.Sprintf("Successfully displayed image for %s", r.Condition)
	case StatusMissing:
		return fmt.Sprintf("Image file not found: %s", r.Path)
	case StatusNoAsset:
		return fmt.Sprintf("No image available for condition: %s", r.Condition)
	default:
		return fmt.Sprintf("Error displaying image: %v", r.Err)
	}
}

// ImageDisplay shows the illustration mapped to a condition label.
type ImageDisplay struct {
	assets outcome.AssetTable
	dir    string
	viewer display.Viewer
	logger *log.Logger
}

// NewImageDisplay resolves assets against dir. Nil assets use the default
// table, an empty dir uses outcome.DefaultImageDir and a nil viewer discards.
func NewImageDisplay(assets outcome.AssetTable, dir string, viewer display.Viewer, logger *log.Logger) *ImageDisplay {
	if assets == nil {
		assets = outcome.DefaultAssets()
	}
	if dir == "" {
		dir = outcome.DefaultImageDir
	}
	if viewer == nil {
		viewer = display.Discard{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ImageDisplay{assets: assets, dir: dir, viewer: viewer, logger: logger}
}

func (t *ImageDisplay) Name() string { return ImageName }

func (t *ImageDisplay) Description() string {
	return "Displays an image related to the diagnosed heart condition."
}

func (t *ImageDisplay) Schema() map[string]interface{} { return tools.SchemaFor(ImageInput{}) }

// Show resolves, locates and displays the image for condition.
func (t *ImageDisplay) Show(ctx context.Context, condition string) DisplayResult {
	condition = strings.Trim(strings.TrimSpace(condition), `"'`)
	res := DisplayResult{Condition: condition}

	ref, ok := outcome.ResolveAsset(outcome.Label(condition), t.assets)
	if !ok {
		res.Status = StatusNoAsset
		return res
	}
	path, exists := outcome.Locate(t.dir, ref)
	res.Path = path
	if !exists {
		res.Status = StatusMissing
		return res
	}
	if err := t.viewer.Show(ctx, path); err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Status = StatusShown
	return res
}

func (t *ImageDisplay) Execute(ctx context.Context, input string) (string, error) {
	args := tools.DecodeInput(input, "condition")
	res := t.Show(ctx, args["condition"])
	if res.Status == StatusFailed {
		t.logger.Warn("image display failed", "condition", res.Condition, "err", res.Err)
	} else {
		t.logger.Debug("image display", "condition", res.Condition, "status", res.Status)
	}
	return res.String(), nil
}

var _ tools.Tool = (*ImageDisplay)(nil)
