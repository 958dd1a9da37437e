package predict

import (
	"context"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/store"
)

// HistoryPredictor is a decorator that records every successful prediction.
type HistoryPredictor struct {
	inner Predictor
	repo  store.PredictionRepo
}

// WithHistory wraps a Predictor with history recording.
func WithHistory(p Predictor, repo store.PredictionRepo) Predictor {
	return &HistoryPredictor{inner: p, repo: repo}
}

func (h *HistoryPredictor) Predict(ctx context.Context, rec features.PatientRecord) (*Result, error) {
	res, err := h.inner.Predict(ctx, rec)
	if err != nil {
		return nil, err
	}

	entry := &store.PredictionRecord{
		Timestamp:       res.Timestamp,
		Input:           rec,
		Disease:         res.Disease,
		Probability:     res.Probability,
		ConfidenceLevel: string(res.ConfidenceLevel),
		ModelVersion:    res.ModelVersion,
	}
	// Record the prediction but don't fail the request if recording fails.
	if logErr := h.repo.Append(ctx, entry); logErr != nil {
		logger.Logf("warning: failed to record prediction: %v", logErr)
	}
	return res, nil
}

func (h *HistoryPredictor) Metadata() (*bundle.Metadata, error) {
	return h.inner.Metadata()
}
