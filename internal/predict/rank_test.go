package predict

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/medipredict/internal/codec"
)

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		p    float64
		want Confidence
	}{
		{100, ConfidenceHigh},
		{80.00, ConfidenceHigh},
		{79.99, ConfidenceMedium},
		{60.00, ConfidenceMedium},
		{59.99, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := ConfidenceFor(tt.p); got != tt.want {
			t.Errorf("ConfidenceFor(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func labels(t *testing.T, names ...string) *codec.LabelCodec {
	t.Helper()
	l, err := codec.FitLabels(names)
	require.NoError(t, err)
	return l
}

func TestRank(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := labels(t, "Asthma", "Common Cold", "Influenza", "Stroke")

	res, err := Rank([]float64{0.125, 0.5, 0.25, 0.125}, 1, l, now)
	require.NoError(t, err)

	assert.Equal(t, "Common Cold", res.Disease)
	assert.Equal(t, 50.0, res.Probability)
	assert.Equal(t, ConfidenceLow, res.ConfidenceLevel)
	assert.Equal(t, now, res.Timestamp)

	want := Probabilities{
		{"Common Cold", 50},
		{"Influenza", 25},
		{"Asthma", 12.5},
		{"Stroke", 12.5},
	}
	assert.Equal(t, want, res.AllProbabilities)
}

func TestRank_Properties(t *testing.T) {
	l := labels(t, "A", "B", "C", "D", "E")
	inputs := [][]float64{
		{0.2, 0.2, 0.2, 0.2, 0.2},
		{0.01, 0.03, 0.9, 0.05, 0.01},
		{0.333, 0.333, 0.334, 0, 0},
		{0, 0, 0, 0, 1},
	}
	for _, probs := range inputs {
		res, err := Rank(probs, argmaxForTest(probs), l, time.Now())
		require.NoError(t, err)

		sum := 0.0
		for i, dp := range res.AllProbabilities {
			sum += dp.Probability
			if i > 0 {
				assert.GreaterOrEqual(t, res.AllProbabilities[i-1].Probability, dp.Probability)
			}
		}
		assert.InDelta(t, 100, sum, 1e-9)
		assert.Len(t, res.AllProbabilities, 5)
	}
}

func argmaxForTest(p []float64) int {
	best := 0
	for i := range p {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

func TestRank_TiesKeepClassOrder(t *testing.T) {
	l := labels(t, "A", "B", "C", "D")
	res, err := Rank([]float64{0.25, 0.25, 0.25, 0.25}, 0, l, time.Now())
	require.NoError(t, err)
	var order []string
	for _, dp := range res.AllProbabilities {
		order = append(order, dp.Disease)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
}

func TestRank_RoundsTopProbability(t *testing.T) {
	l := labels(t, "A", "B")

	res, err := Rank([]float64{0.833333, 0.166667}, 0, l, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 83.33, res.Probability)

	// The tier follows the reported (rounded) value.
	res, err = Rank([]float64{0.79996, 0.20004}, 0, l, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 80.0, res.Probability)
	assert.Equal(t, ConfidenceHigh, res.ConfidenceLevel)
}

func TestRank_Errors(t *testing.T) {
	l := labels(t, "A", "B", "C")

	_, err := Rank([]float64{0.5, 0.5}, 0, l, time.Now())
	assert.Error(t, err)

	_, err = Rank([]float64{0.2, 0.3, 0.5}, 7, l, time.Now())
	var uce *codec.UnknownCategoryError
	assert.True(t, errors.As(err, &uce), "err = %v", err)
	assert.Equal(t, KindBundleCorrupt, KindOf(err))
}

func TestResultJSON_OrderedProbabilities(t *testing.T) {
	res := &Result{
		Disease:         "B",
		Probability:     50,
		ConfidenceLevel: ConfidenceLow,
		AllProbabilities: Probabilities{
			{"B", 50}, {"C", 25}, {"A", 25},
		},
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"all_probabilities":{"B":50,"C":25,"A":25}`)
	assert.Contains(t, string(b), `"confidence_level":"low"`)
	assert.NotContains(t, string(b), "model_version")

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, res.AllProbabilities, back.AllProbabilities)
	assert.True(t, res.Timestamp.Equal(back.Timestamp))
}

func TestProbabilities_UnmarshalRejectsArray(t *testing.T) {
	var p Probabilities
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
}
