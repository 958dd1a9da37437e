package bundle

import (
	"fmt"
	"sort"

	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/codec"
	"github.com/abhisek/medipredict/internal/schema"
)

// Fixture returns a valid bundle backed by a classifier.Stub that always
// answers proba. Classes are sorted before use, and proba[i] belongs to
// the i-th class in sorted order. Intended for tests and demos.
func Fixture(classes []string, proba []float64) (*Bundle, error) {
	if len(classes) != len(proba) {
		return nil, fmt.Errorf("fixture: %d classes but %d probabilities", len(classes), len(proba))
	}
	sorted := append([]string(nil), classes...)
	sort.Strings(sorted)

	labels, err := codec.FitLabels(sorted)
	if err != nil {
		return nil, err
	}
	stub := &classifier.Stub{Proba: append([]float64(nil), proba...), Features: schema.NumFeatures}

	importance := make(map[string]float64, schema.NumFeatures)
	for i, f := range schema.FeatureNames {
		importance[f] = stub.FeatureImportances()[i]
	}

	c := codec.New(codec.SeverityMapping(), codec.SeverityMapping())
	b := &Bundle{
		Classifier: stub,
		Labels:     labels,
		Metadata: Metadata{
			ModelType:         classifier.KindStub,
			Version:           "fixture",
			Accuracy:          1,
			Features:          schema.Names(),
			NFeatures:         schema.NumFeatures,
			Classes:           labels.Classes(),
			NClasses:          labels.Len(),
			FeatureImportance: importance,
			Encodings:         c.Encodings(),
		},
		Mappings: Mappings{
			BPMapping:    c.BloodPressure(),
			CholMapping:  c.Cholesterol(),
			FeatureNames: schema.Names(),
		},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
