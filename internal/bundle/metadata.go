package bundle

import (
	"sort"
	"time"

	"github.com/abhisek/medipredict/internal/codec"
)

// Metadata describes a trained model. It is persisted as
// model_metadata.json and served as-is to callers.
type Metadata struct {
	ModelType         string                   `json:"model_type" yaml:"model_type"`
	Version           string                   `json:"version,omitempty" yaml:"version,omitempty"`
	Accuracy          float64                  `json:"accuracy" yaml:"accuracy"`
	Features          []string                 `json:"features,omitempty" yaml:"features,omitempty"`
	NFeatures         int                      `json:"n_features" yaml:"n_features"`
	Classes           []string                 `json:"classes" yaml:"classes"`
	NClasses          int                      `json:"n_classes" yaml:"n_classes"`
	NEstimators       int                      `json:"n_estimators,omitempty" yaml:"n_estimators,omitempty"`
	MaxDepth          int                      `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	TrainingSamples   int                      `json:"training_samples,omitempty" yaml:"training_samples,omitempty"`
	TestSamples       int                      `json:"test_samples,omitempty" yaml:"test_samples,omitempty"`
	FeatureImportance map[string]float64       `json:"feature_importance" yaml:"feature_importance"`
	Encodings         map[string]codec.Mapping `json:"encodings,omitempty" yaml:"encodings,omitempty"`
	TrainedAt         time.Time                `json:"trained_at,omitzero" yaml:"trained_at,omitempty"`
}

// FeatureWeight is one entry of a ranked importance list.
type FeatureWeight struct {
	Feature    string
	Importance float64
}

// RankedImportance returns feature importances from largest to smallest.
func (m *Metadata) RankedImportance() []FeatureWeight {
	out := make([]FeatureWeight, 0, len(m.FeatureImportance))
	for f, v := range m.FeatureImportance {
		out = append(out, FeatureWeight{Feature: f, Importance: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Mappings holds the categorical mappings produced by training. It is
// persisted as model_mappings.json.
type Mappings struct {
	BPMapping    codec.Mapping `json:"bp_mapping"`
	CholMapping  codec.Mapping `json:"chol_mapping"`
	FeatureNames []string      `json:"feature_names"`
}
