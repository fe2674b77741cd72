// Package classifier is the boundary to the trained heart-condition model.
//
// The model itself is an opaque artifact produced elsewhere. This package
// loads the artifact's description (feature order, label table, serving
// endpoint) and scores assembled feature vectors against it.
package classifier

import (
	"context"
	"errors"

	"github.com/KamdynS/heartcrew/features"
	"github.com/KamdynS/heartcrew/outcome"
)

// ErrNoPrediction is returned when a model answers without a class code.
var ErrNoPrediction = errors.New("classifier returned no prediction")

// Classifier maps one feature vector to a class code.
type Classifier interface {
	Predict(ctx context.Context, v features.Vector) (outcome.ClassCode, error)
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, v features.Vector) (outcome.ClassCode, error)

func (f Func) Predict(ctx context.Context, v features.Vector) (outcome.ClassCode, error) {
	return f(ctx, v)
}

// Fixed always predicts Code. It backs offline runs where no model server is
// available.
type Fixed struct {
	Code outcome.ClassCode
}

func (f Fixed) Predict(ctx context.Context, v features.Vector) (outcome.ClassCode, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.Code, nil
}
