package predict

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/medipredict/internal/codec"
	"github.com/abhisek/medipredict/internal/features"
)

// ErrArtifactNotLoaded is returned when no model bundle is active.
var ErrArtifactNotLoaded = errors.New("model artifacts not loaded")

// PredictionFailure wraps an unexpected failure inside the classifier.
type PredictionFailure struct {
	Err error
}

func (e *PredictionFailure) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *PredictionFailure) Unwrap() error { return e.Err }

// ErrorKind classifies a Predict error for callers that map errors to
// client-facing status.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindArtifactNotLoaded
	KindInvalidInput
	KindBundleCorrupt
	KindPredictionFailure
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindArtifactNotLoaded:
		return "artifact_not_loaded"
	case KindInvalidInput:
		return "invalid_input"
	case KindBundleCorrupt:
		return "bundle_corrupt"
	case KindCanceled:
		return "canceled"
	}
	return "prediction_failure"
}

// KindOf reports which kind of failure err is.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		icv *features.InvalidCategoricalValueError
		aoe *features.AgeOutOfRangeError
		uce *codec.UnknownCategoryError
		pf  *PredictionFailure
	)
	switch {
	case errors.Is(err, ErrArtifactNotLoaded):
		return KindArtifactNotLoaded
	case errors.As(err, &icv), errors.As(err, &aoe):
		return KindInvalidInput
	case errors.As(err, &pf):
		return KindPredictionFailure
	case errors.As(err, &uce):
		return KindBundleCorrupt
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindPredictionFailure
}
