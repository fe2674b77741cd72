// Package heart provides the two tools the diagnosis doctor works with: the
// heart-condition predictor and the condition image display.
package heart

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/classifier"
	"github.com/KamdynS/heartcrew/features"
	obs "github.com/KamdynS/heartcrew/observability"
	"github.com/KamdynS/heartcrew/outcome"
	"github.com/KamdynS/heartcrew/tools"
)

const (
	PredictorName = "Heart Disease Predictor"
	ImageName     = "Heart Condition Image Display"
)

// PredictorInput is the predictor's argument object.
type PredictorInput struct {
	PatientData string `json:"patient_data" jsonschema:"description=Patient data string containing symptoms and medical history"`
}

// Prediction is the structured result behind the predictor's text output.
type Prediction struct {
	Code    outcome.ClassCode `json:"code"`
	Label   outcome.Label     `json:"label"`
	Vector  features.Vector   `json:"vector"`
	Parsed  []string          `json:"parsed,omitempty"`
	Missing []string          `json:"missing,omitempty"`
	Dropped []string          `json:"dropped,omitempty"`
}

// Predictor scores patient data with the trained classifier.
type Predictor struct {
	classifier classifier.Classifier
	schema     features.Schema
	labels     outcome.LabelTable
	fill       float64
	baseline   features.Measurements
	logger     *log.Logger
}

// PredictorConfig configures NewPredictor. Zero fields take defaults: the
// demo schema, the default label table and the sample measurements.
type PredictorConfig struct {
	Classifier classifier.Classifier
	Schema     features.Schema
	Labels     outcome.LabelTable
	Fill       float64
	Baseline   features.Measurements
	Logger     *log.Logger
}

func NewPredictor(cfg PredictorConfig) *Predictor {
	p := &Predictor{
		classifier: cfg.Classifier,
		schema:     cfg.Schema,
		labels:     cfg.Labels,
		fill:       cfg.Fill,
		baseline:   cfg.Baseline,
		logger:     cfg.Logger,
	}
	if p.schema.Len() == 0 {
		p.schema = features.NewSchema(features.DemoColumns()...)
	}
	if p.labels == nil {
		p.labels = outcome.DefaultLabels()
	}
	if p.baseline == nil {
		p.baseline = features.SampleMeasurements()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

func (p *Predictor) Name() string { return PredictorName }

func (p *Predictor) Description() string {
	return "Predicts heart condition based on patient medical data using a trained ML model."
}

func (p *Predictor) Schema() map[string]interface{} { return tools.SchemaFor(PredictorInput{}) }

// Predict assembles the baseline panel, overlaid with any values found in
// patientData, and classifies it.
func (p *Predictor) Predict(ctx context.Context, patientData string) (*Prediction, error) {
	if p.classifier == nil {
		return nil, fmt.Errorf("no classifier configured")
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "heart.predict")
	defer span.End()

	parsed := features.Parse(patientData, p.schema)
	m := features.Merge(p.baseline, parsed)
	v := features.Assemble(m, p.schema, p.fill)

	code, err := p.classifier.Predict(ctx, v)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}
	label := outcome.ResolveLabel(code, p.labels)

	pred := &Prediction{
		Code:    code,
		Label:   label,
		Vector:  v,
		Missing: features.Missing(m, p.schema),
		Dropped: features.Dropped(m, p.schema),
	}
	for name := range parsed {
		pred.Parsed = append(pred.Parsed, name)
	}
	sort.Strings(pred.Parsed)
	if len(pred.Dropped) > 0 {
		p.logger.Debug("measurements outside model schema ignored", "names", pred.Dropped)
	}
	span.SetAttribute(obs.AttrLabel, string(label))
	span.SetAttribute(obs.AttrFeatureFill, len(pred.Missing))
	span.SetStatus(obs.StatusCodeOk, "")
	obs.MetricsImpl.RecordPrediction(string(label))
	return pred, nil
}

// Execute never fails: classifier errors are reported in the returned text so
// the calling agent can carry on.
func (p *Predictor) Execute(ctx context.Context, input string) (string, error) {
	args := tools.DecodeInput(input, "patient_data")
	pred, err := p.Predict(ctx, args["patient_data"])
	if err != nil {
		p.logger.Warn("heart prediction failed", "err", err)
		return fmt.Sprintf("Error in heart disease prediction: %v", err), nil
	}
	p.logger.Info("heart prediction", "label", pred.Label, "code", pred.Code, "filled", len(pred.Missing))
	return fmt.Sprintf("ML Model Prediction: %s", pred.Label), nil
}

var _ tools.Tool = (*Predictor)(nil)
