package classifier

import (
	"encoding/json"
	"fmt"
)

// KindStub is the Kind of Stub models.
const KindStub = "Stub"

func init() {
	Register(KindStub, func(data []byte) (Classifier, error) {
		s := &Stub{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode stub: %w", err)
		}
		return s, nil
	})
}

// Stub is a deterministic Classifier for tests. It ignores its input and
// returns Proba for every row. Err, when set, is returned from Predict and
// PredictProba.
type Stub struct {
	Proba       []float64 `json:"proba"`
	Features    int       `json:"features"`
	Importances []float64 `json:"importances,omitempty"`
	Err         error     `json:"-"`

	// Panic makes PredictProba panic, simulating a broken model.
	Panic bool `json:"-"`
}

func (s *Stub) Kind() string     { return KindStub }
func (s *Stub) NumClasses() int  { return len(s.Proba) }
func (s *Stub) NumFeatures() int { return s.Features }

func (s *Stub) FeatureImportances() []float64 {
	if s.Importances != nil {
		return s.Importances
	}
	out := make([]float64, s.Features)
	for i := range out {
		out[i] = 1 / float64(s.Features)
	}
	return out
}

// Fit records the class count with a uniform distribution.
func (s *Stub) Fit(X [][]float64, y []int, nClasses int) error {
	if len(X) == 0 {
		return fmt.Errorf("no training samples")
	}
	s.Features = len(X[0])
	s.Proba = make([]float64, nClasses)
	for i := range s.Proba {
		s.Proba[i] = 1 / float64(nClasses)
	}
	return nil
}

func (s *Stub) PredictProba(x []float64) ([]float64, error) {
	if s.Panic {
		panic("stub classifier panic")
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if err := checkInput(x, s.Features); err != nil {
		return nil, err
	}
	out := make([]float64, len(s.Proba))
	copy(out, s.Proba)
	return out, nil
}

func (s *Stub) Predict(x []float64) (int, error) {
	p, err := s.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(p), nil
}

func (s *Stub) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}
