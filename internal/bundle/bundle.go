// Package bundle holds the trained model artifacts (classifier, disease label
// codec, metadata, categorical mappings) as one unit. A bundle is validated
// as a whole, saved as a whole and swapped in as a whole; it is never patched
// in place.
package bundle

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/codec"
	"github.com/abhisek/medipredict/internal/schema"
)

// Bundle is a complete, versioned set of model artifacts.
type Bundle struct {
	Classifier classifier.Classifier
	Labels     *codec.LabelCodec
	Metadata   Metadata
	Mappings   Mappings
}

// InvalidBundleError lists every cross-artifact invariant a bundle violates.
type InvalidBundleError struct {
	Problems []string
}

func (e *InvalidBundleError) Error() string {
	return "invalid model bundle: " + strings.Join(e.Problems, "; ")
}

// importanceTolerance bounds how far the importance sum may drift from 1.
const importanceTolerance = 1e-6

// Validate checks that the artifacts agree with each other and with the
// shared feature schema.
func (b *Bundle) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	md := &b.Metadata
	if md.ModelType == "" {
		add("metadata model_type is empty")
	}
	if md.Accuracy < 0 || md.Accuracy > 1 || math.IsNaN(md.Accuracy) {
		add("metadata accuracy %v outside [0,1]", md.Accuracy)
	}
	if len(md.Classes) != md.NClasses {
		add("metadata has %d classes but n_classes=%d", len(md.Classes), md.NClasses)
	}
	if md.NFeatures != schema.NumFeatures {
		add("metadata n_features=%d, schema has %d", md.NFeatures, schema.NumFeatures)
	}
	if len(md.Features) > 0 && !schema.SameOrder(md.Features) {
		add("metadata features %v do not match schema order %v", md.Features, schema.Names())
	}
	if len(md.FeatureImportance) > 0 {
		sum := 0.0
		for f, v := range md.FeatureImportance {
			if !isFeature(f) {
				add("feature_importance names unknown feature %q", f)
			}
			sum += v
		}
		// All-zero importance is legal for a model that never split.
		if sum != 0 && math.Abs(sum-1) > importanceTolerance {
			add("feature_importance sums to %.6f, want 1", sum)
		}
	}

	mp := &b.Mappings
	if !schema.SameOrder(mp.FeatureNames) {
		add("mappings feature_names %v do not match schema order %v", mp.FeatureNames, schema.Names())
	}
	for _, m := range []struct {
		name    string
		mapping codec.Mapping
	}{
		{"bp_mapping", mp.BPMapping},
		{"chol_mapping", mp.CholMapping},
	} {
		if len(m.mapping) == 0 {
			add("%s is empty", m.name)
			continue
		}
		if err := codec.CheckSeverity(m.name, m.mapping); err != nil {
			add("%v", err)
		}
	}

	if b.Labels == nil {
		add("disease label codec is missing")
	} else {
		if b.Labels.Len() != md.NClasses {
			add("label codec has %d classes but n_classes=%d", b.Labels.Len(), md.NClasses)
		}
		if !slices.Equal(b.Labels.Classes(), md.Classes) {
			add("metadata classes are not in label codec order")
		}
	}

	if b.Classifier == nil {
		add("classifier is missing")
	} else {
		if b.Classifier.NumClasses() != md.NClasses {
			add("classifier has %d classes but n_classes=%d", b.Classifier.NumClasses(), md.NClasses)
		}
		if b.Classifier.NumFeatures() != md.NFeatures {
			add("classifier expects %d features but n_features=%d", b.Classifier.NumFeatures(), md.NFeatures)
		}
		if ens, ok := b.Classifier.(interface{ NumTrees() int }); ok && ens.NumTrees() != md.NEstimators {
			add("classifier has %d trees but n_estimators=%d", ens.NumTrees(), md.NEstimators)
		}
	}

	if len(problems) > 0 {
		return &InvalidBundleError{Problems: problems}
	}
	return nil
}

func isFeature(name string) bool {
	return slices.Contains(schema.FeatureNames[:], name)
}
