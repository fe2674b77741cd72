package heart

import (
	"context"
	"strings"

	"github.com/KamdynS/heartcrew/tools"
)

// CheckResult is one tool's smoke-test outcome.
type CheckResult struct {
	Tool   string
	Output string
	OK     bool
}

// Check runs both heart tools once with canned input, the way the CLI does
// before starting a consultation.
func Check(ctx context.Context, reg tools.Registry) []CheckResult {
	samples := []struct{ tool, input string }{
		{PredictorName, `{"patient_data":"Patient has chest pain and shortness of breath"}`},
		{ImageName, `{"condition":"Anterior Wall MI"}`},
	}
	out := make([]CheckResult, 0, len(samples))
	for _, p := range samples {
		res, err := reg.Execute(ctx, p.tool, p.input)
		r := CheckResult{Tool: p.tool, Output: res}
		if err != nil {
			r.Output = err.Error()
		} else {
			r.OK = !strings.HasPrefix(res, "Error")
		}
		out = append(out, r)
	}
	return out
}

// Register adds both tools to reg.
func Register(reg tools.Registry, p *Predictor, img *ImageDisplay) error {
	if err := reg.Register(p); err != nil {
		return err
	}
	return reg.Register(img)
}
