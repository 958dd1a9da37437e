package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/features"
)

// Predictor is the inference entry point exposed to transports.
type Predictor interface {
	// Predict encodes rec, runs the classifier and ranks the result.
	Predict(ctx context.Context, rec features.PatientRecord) (*Result, error)

	// Metadata returns the active model's metadata.
	Metadata() (*bundle.Metadata, error)
}

// Service predicts with whatever bundle its Holder currently publishes. Each
// call reads the bundle once, so a concurrent Reload never mixes artifacts
// within one prediction.
type Service struct {
	holder  *bundle.Holder
	encoder features.Encoder
	now     func() time.Time
}

// NewService returns a Service reading from h.
func NewService(h *bundle.Holder, enc features.Encoder) *Service {
	return &Service{holder: h, encoder: enc, now: time.Now}
}

// Predict implements Predictor.
func (s *Service) Predict(ctx context.Context, rec features.PatientRecord) (*Result, error) {
	b := s.holder.Get()
	if b == nil {
		return nil, ErrArtifactNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	vec, err := s.encoder.Encode(rec, b.Mappings.BPMapping, b.Mappings.CholMapping)
	if err != nil {
		return nil, err
	}

	predicted, probs, err := invoke(b.Classifier, vec.Slice())
	if err != nil {
		return nil, err
	}
	if len(probs) != b.Labels.Len() {
		return nil, &PredictionFailure{Err: fmt.Errorf("classifier returned %d probabilities for %d classes", len(probs), b.Labels.Len())}
	}

	res, err := Rank(probs, predicted, b.Labels, s.now())
	if err != nil {
		logger.Logf("bundle %q failed to rank class %d: %v", b.Metadata.Version, predicted, err)
		return nil, err
	}
	res.ModelVersion = b.Metadata.Version
	logger.Debugf("predicted %s (%.2f%%, %s)", res.Disease, res.Probability, res.ConfidenceLevel)
	return res, nil
}

// invoke runs the classifier, turning errors and panics into
// PredictionFailure.
func invoke(c classifier.Classifier, x []float64) (predicted int, probs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PredictionFailure{Err: fmt.Errorf("classifier panic: %v", r)}
		}
	}()
	predicted, err = c.Predict(x)
	if err != nil {
		return 0, nil, &PredictionFailure{Err: err}
	}
	probs, err = c.PredictProba(x)
	if err != nil {
		return 0, nil, &PredictionFailure{Err: err}
	}
	return predicted, probs, nil
}

// Metadata implements Predictor.
func (s *Service) Metadata() (*bundle.Metadata, error) {
	b := s.holder.Get()
	if b == nil {
		return nil, ErrArtifactNotLoaded
	}
	md := b.Metadata
	return &md, nil
}

// Diseases returns the predictable diseases in class-id order.
func (s *Service) Diseases() ([]string, error) {
	b := s.holder.Get()
	if b == nil {
		return nil, ErrArtifactNotLoaded
	}
	return b.Labels.Classes(), nil
}

// Bundle returns the active bundle, or nil.
func (s *Service) Bundle() *bundle.Bundle { return s.holder.Get() }

// Reload loads the bundle in dir, makes it active and returns it. The
// previous bundle stays active if loading fails.
func (s *Service) Reload(dir string) (*bundle.Bundle, error) {
	return s.holder.Reload(dir)
}
