package crew

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/KamdynS/heartcrew/agent/core"
	"github.com/KamdynS/heartcrew/history"
	"github.com/KamdynS/heartcrew/tools/heart"
	"github.com/KamdynS/heartcrew/workflow"
)

// Clinic runs full consultations: the classifier's direct prediction and
// the doctors' crew side by side, stored as one history record.
type Clinic struct {
	Diagnosis core.Agent
	Treatment core.Agent
	Predictor *heart.Predictor
	History   history.Store
	Logger    *log.Logger
}

// Consult runs one consultation. A crew failure is stored on the record and
// returned alongside it; a failed direct prediction only marks the record.
func (c *Clinic) Consult(ctx context.Context, patientData string, opts ...workflow.Option) (*history.Record, error) {
	patientData = strings.TrimSpace(patientData)
	if patientData == "" {
		return nil, ErrEmptyPatientData
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	rec := history.NewRecord(patientData)
	ctx = core.WithSession(ctx, rec.ID)

	w, err := workflow.New().
		Step("intake", func(ctx context.Context, in any) (any, error) {
			logger.Info("consultation started", "id", rec.ID)
			return patientData, nil
		}).
		Branch(
			workflow.Branch("predict", func(ctx context.Context, in any) (any, error) {
				return c.predict(ctx, patientData), nil
			}).When(func(ctx context.Context, in any) bool { return c.Predictor != nil }),
			workflow.Branch("crew", func(ctx context.Context, in any) (any, error) {
				res, err := Doctors(ctx, c.Diagnosis, c.Treatment, patientData, logger)
				// failures travel as values so the record is still written
				return crewOutcome{res: res, err: err}, nil
			}),
		).
		Merge("record", func(ctx context.Context, inputs []any) (any, error) {
			var crewErr error
			for _, v := range inputs {
				switch o := v.(type) {
				case *history.Prediction:
					rec.Prediction = o
				case crewOutcome:
					crewErr = o.err
					if o.res != nil {
						applyResult(rec, o.res)
					}
				}
			}
			if crewErr != nil {
				rec.Error = crewErr.Error()
			}
			return crewErr, nil
		}).
		Then("persist", func(ctx context.Context, in any) (any, error) {
			if c.History != nil {
				if err := c.History.Save(ctx, rec); err != nil {
					return nil, err
				}
			}
			return in, nil
		}).
		Build()
	if err != nil {
		return nil, err
	}

	out, err := w.Run(ctx, nil, opts...)
	if err != nil {
		return rec, err
	}
	if crewErr, ok := out.(error); ok && crewErr != nil {
		logger.Error("consultation failed", "id", rec.ID, "err", crewErr)
		return rec, crewErr
	}
	logger.Info("consultation stored", "id", rec.ID, "diagnosis", firstLine(rec.Diagnosis))
	return rec, nil
}

type crewOutcome struct {
	res *Result
	err error
}

func (c *Clinic) predict(ctx context.Context, patientData string) *history.Prediction {
	p, err := c.Predictor.Predict(ctx, patientData)
	if err != nil {
		return &history.Prediction{Code: -1, Label: "", Error: err.Error()}
	}
	return &history.Prediction{Code: int(p.Code), Label: string(p.Label)}
}

func applyResult(rec *history.Record, res *Result) {
	for _, t := range res.Tasks {
		rec.Tasks = append(rec.Tasks, history.TaskOutput{
			Task:     t.Task,
			Agent:    t.Agent,
			Output:   t.Output,
			Duration: t.Duration,
		})
	}
	rec.Diagnosis, _ = res.Output(DiagnoseTaskName)
	rec.Treatment, _ = res.Output(TreatmentTaskName)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
