// Package predict turns a patient record into a ranked disease prediction
// using the active model bundle.
package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abhisek/medipredict/internal/codec"
)

// Confidence is the coarse tier of the top prediction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Tier lower bounds, in percent. Each bound is inclusive.
const (
	HighThreshold   = 80.0
	MediumThreshold = 60.0
)

// ConfidenceFor returns the tier for a probability in percent.
func ConfidenceFor(probability float64) Confidence {
	switch {
	case probability >= HighThreshold:
		return ConfidenceHigh
	case probability >= MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DiseaseProbability is one entry of the ranked distribution.
type DiseaseProbability struct {
	Disease     string  `json:"disease"`
	Probability float64 `json:"probability"`
}

// Probabilities is a ranked distribution. It encodes as a JSON object whose
// keys keep the ranked order.
type Probabilities []DiseaseProbability

func (p Probabilities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dp := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(dp.Disease)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(dp.Probability)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Probabilities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("all_probabilities: expected object, got %v", tok)
	}
	out := Probabilities{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("all_probabilities: expected key, got %v", tok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("all_probabilities[%q]: %w", key, err)
		}
		out = append(out, DiseaseProbability{Disease: key, Probability: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// Result is a ranked prediction.
type Result struct {
	Disease          string        `json:"disease"`
	Probability      float64       `json:"probability"`
	ConfidenceLevel  Confidence    `json:"confidence_level"`
	AllProbabilities Probabilities `json:"all_probabilities"`
	Timestamp        time.Time     `json:"timestamp"`
	ModelVersion     string        `json:"model_version,omitempty"`
}

// Rank builds a Result from per-class probabilities aligned with the label
// codec's class ids. The top probability is reported in percent rounded to
// two decimals, and the tier is taken from that reported value. The full
// distribution is sorted by probability, highest first; equal values keep
// class-id order.
func Rank(probs []float64, predicted int, labels *codec.LabelCodec, now time.Time) (*Result, error) {
	if len(probs) != labels.Len() {
		return nil, fmt.Errorf("got %d probabilities for %d classes", len(probs), labels.Len())
	}
	disease, err := labels.Decode(predicted)
	if err != nil {
		return nil, err
	}

	all := make(Probabilities, len(probs))
	for i, p := range probs {
		name, err := labels.Decode(i)
		if err != nil {
			return nil, err
		}
		all[i] = DiseaseProbability{Disease: name, Probability: p * 100}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Probability > all[j].Probability
	})

	probability := round2(probs[predicted] * 100)
	return &Result{
		Disease:          disease,
		Probability:      probability,
		ConfidenceLevel:  ConfidenceFor(probability),
		AllProbabilities: all,
		Timestamp:        now,
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
