package bundle

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/codec"
)

func fixture(t *testing.T) *Bundle {
	t.Helper()
	b, err := Fixture([]string{"Influenza", "Asthma", "Common Cold"}, []float64{0.2, 0.5, 0.3})
	require.NoError(t, err)
	return b
}

func TestFixture_SortsClasses(t *testing.T) {
	b := fixture(t)
	assert.Equal(t, []string{"Asthma", "Common Cold", "Influenza"}, b.Metadata.Classes)
	assert.Equal(t, 3, b.Classifier.NumClasses())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"classes length disagrees with n_classes", func(b *Bundle) { b.Metadata.Classes = b.Metadata.Classes[:2] }},
		{"wrong feature count", func(b *Bundle) { b.Metadata.NFeatures = 7 }},
		{"accuracy above one", func(b *Bundle) { b.Metadata.Accuracy = 1.5 }},
		{"feature order", func(b *Bundle) {
			b.Mappings.FeatureNames[0], b.Mappings.FeatureNames[1] = b.Mappings.FeatureNames[1], b.Mappings.FeatureNames[0]
		}},
		{"importance does not sum to one", func(b *Bundle) { b.Metadata.FeatureImportance["Age"] += 0.5 }},
		{"unknown importance feature", func(b *Bundle) { b.Metadata.FeatureImportance["Height"] = 0 }},
		{"empty bp mapping", func(b *Bundle) { b.Mappings.BPMapping = nil }},
		{"duplicate bp codes", func(b *Bundle) { b.Mappings.BPMapping = codec.Mapping{"Low": 0, "Normal": 0} }},
		{"chol code off the severity scale", func(b *Bundle) { b.Mappings.CholMapping = codec.Mapping{"Low": 0, "High": 1} }},
		{"unknown chol level", func(b *Bundle) { b.Mappings.CholMapping = codec.Mapping{"Medium": 1} }},
		{"missing classifier", func(b *Bundle) { b.Classifier = nil }},
		{"missing labels", func(b *Bundle) { b.Labels = nil }},
		{"classifier width", func(b *Bundle) { b.Classifier = &classifier.Stub{Proba: []float64{1, 0, 0}, Features: 5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixture(t)
			tt.mutate(b)
			err := b.Validate()
			var ibe *InvalidBundleError
			require.ErrorAs(t, err, &ibe)
			assert.NotEmpty(t, ibe.Problems)
		})
	}
}

func TestValidate_TreeCountMatchesEstimators(t *testing.T) {
	cfg := classifier.DefaultConfig()
	cfg.NumTrees = 2
	rf := classifier.NewRandomForest(cfg)
	X := [][]float64{
		{1, 0, 0, 0, 30, 1, 0, 0},
		{0, 1, 0, 0, 40, 0, 1, 1},
		{0, 0, 1, 1, 50, 1, 2, 2},
	}
	require.NoError(t, rf.Fit(X, []int{0, 1, 2}, 3))

	b := fixture(t)
	b.Classifier = rf
	b.Metadata.NEstimators = 2
	require.NoError(t, b.Validate())

	b.Metadata.NEstimators = 300
	var ibe *InvalidBundleError
	require.ErrorAs(t, b.Validate(), &ibe)
	assert.Equal(t, []string{"classifier has 2 trees but n_estimators=300"}, ibe.Problems)
}

func TestValidate_AllZeroImportanceAllowed(t *testing.T) {
	b := fixture(t)
	for k := range b.Metadata.FeatureImportance {
		b.Metadata.FeatureImportance[k] = 0
	}
	assert.NoError(t, b.Validate())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	b := fixture(t)
	require.NoError(t, Save(dir, b))
	assert.True(t, Exists(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, b.Metadata.Classes, got.Metadata.Classes)
	assert.Equal(t, b.Labels.Classes(), got.Labels.Classes())
	assert.True(t, b.Mappings.BPMapping.Equal(got.Mappings.BPMapping))
	assert.Equal(t, classifier.KindStub, got.Classifier.Kind())

	p, err := got.Classifier.PredictProba(make([]float64, 8))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.5, 0.3}, p)
}

func TestSave_ReplacesAndKeepsUnrelatedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, Save(dir, fixture(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NOTES.md"), []byte("v1"), 0o644))

	next, err := Fixture([]string{"Asthma", "Stroke"}, []float64{0.9, 0.1})
	require.NoError(t, err)
	require.NoError(t, Save(dir, next))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Asthma", "Stroke"}, got.Metadata.Classes)
	assert.FileExists(t, filepath.Join(dir, "NOTES.md"))

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directories should be cleaned up")
}

func TestSave_DropsModelCardOfPreviousBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	first := fixture(t)
	first.Metadata.Version = "v1"
	require.NoError(t, SaveWith(dir, first, SaveOptions{AIBOM: true}))
	require.FileExists(t, filepath.Join(dir, AIBOMFile))

	next, err := Fixture([]string{"Asthma", "Stroke"}, []float64{0.9, 0.1})
	require.NoError(t, err)
	next.Metadata.Version = "v2"
	require.NoError(t, Save(dir, next))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Metadata.Version)
	assert.NoFileExists(t, filepath.Join(dir, AIBOMFile))
}

func TestSaveWith_ModelCardMatchesBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	first := fixture(t)
	first.Metadata.Version = "v1"
	require.NoError(t, SaveWith(dir, first, SaveOptions{AIBOM: true}))

	next, err := Fixture([]string{"Asthma", "Stroke"}, []float64{0.9, 0.1})
	require.NoError(t, err)
	next.Metadata.Version = "v2"
	require.NoError(t, SaveWith(dir, next, SaveOptions{AIBOM: true}))

	got, err := Load(dir)
	require.NoError(t, err)
	bom, err := ReadAIBOM(filepath.Join(dir, AIBOMFile))
	require.NoError(t, err)
	require.NotNil(t, bom.Metadata)
	require.NotNil(t, bom.Metadata.Component)
	assert.Equal(t, got.Metadata.Version, bom.Metadata.Component.Version)
}

func TestSave_RejectsInvalid(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	b := fixture(t)
	b.Metadata.NClasses = 9
	require.Error(t, Save(dir, b))
	assert.NoDirExists(t, dir)
}

func TestLoad_MissingArtifact(t *testing.T) {
	for _, name := range []string{ModelFile, LabelsFile, MetadataFile, MappingsFile} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "model")
			require.NoError(t, Save(dir, fixture(t)))
			require.NoError(t, os.Remove(filepath.Join(dir, name)))

			_, err := Load(dir)
			assert.True(t, errors.Is(err, ErrMissingArtifact), "err = %v", err)
			assert.False(t, Exists(dir))
		})
	}
}

func rewriteMetadata(t *testing.T, dir string, edit func(m map[string]any)) {
	t.Helper()
	path := filepath.Join(dir, MetadataFile)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	edit(m)
	raw, err = json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestLoad_ClassCountMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, Save(dir, fixture(t)))
	rewriteMetadata(t, dir, func(m map[string]any) {
		m["classes"] = []string{"Asthma", "Common Cold"}
	})

	_, err := Load(dir)
	var ibe *InvalidBundleError
	require.ErrorAs(t, err, &ibe)
	assert.Contains(t, err.Error(), "n_classes=3")
}

func TestLoad_SchemaViolation(t *testing.T) {
	tests := []struct {
		name string
		edit func(m map[string]any)
	}{
		{"accuracy out of range", func(m map[string]any) { m["accuracy"] = 2 }},
		{"missing model_type", func(m map[string]any) { delete(m, "model_type") }},
		{"classes not strings", func(m map[string]any) { m["classes"] = []int{1, 2, 3} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "model")
			require.NoError(t, Save(dir, fixture(t)))
			rewriteMetadata(t, dir, tt.edit)

			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "model_metadata")
		})
	}
}

func TestLoad_CorruptModel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, Save(dir, fixture(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("not a model"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ModelFile)
}

func TestHolder_ReloadKeepsActiveOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	b := fixture(t)
	require.NoError(t, Save(dir, b))

	h := NewHolder(nil)
	assert.Nil(t, h.Get())

	loaded, err := h.Reload(dir)
	require.NoError(t, err)
	assert.Same(t, loaded, h.Get())

	require.NoError(t, os.Remove(filepath.Join(dir, LabelsFile)))
	_, err = h.Reload(dir)
	require.Error(t, err)
	assert.Same(t, loaded, h.Get())

	prev := h.Swap(b)
	assert.Same(t, loaded, prev)
	assert.Same(t, b, h.Get())
}

func TestAIBOM_RoundTrip(t *testing.T) {
	b := fixture(t)
	b.Metadata.Accuracy = 0.8123
	dir := t.TempDir()
	require.NoError(t, SaveWith(dir, b, SaveOptions{AIBOM: true}))

	bom, err := ReadAIBOM(filepath.Join(dir, AIBOMFile))
	require.NoError(t, err)
	require.NotNil(t, bom.Metadata)
	comp := bom.Metadata.Component
	require.NotNil(t, comp)
	assert.Equal(t, cdx.ComponentTypeMachineLearningModel, comp.Type)
	require.NotNil(t, comp.ModelCard)
	mp := comp.ModelCard.ModelParameters
	require.NotNil(t, mp)
	assert.Equal(t, "classification", mp.Task)
	assert.Len(t, *mp.Inputs, 8)

	metrics := *comp.ModelCard.QuantitativeAnalysis.PerformanceMetrics
	assert.Equal(t, "accuracy", metrics[0].Type)
	assert.Equal(t, "0.8123", metrics[0].Value)
	assert.Len(t, metrics, 1+8)
}

func TestRankedImportance(t *testing.T) {
	md := Metadata{FeatureImportance: map[string]float64{"Age": 0.5, "Fever": 0.2, "Cough": 0.2, "Gender": 0.1}}
	got := md.RankedImportance()
	require.Len(t, got, 4)
	assert.Equal(t, "Age", got[0].Feature)
	assert.Equal(t, "Cough", got[1].Feature)
	assert.Equal(t, "Fever", got[2].Feature)
	assert.Equal(t, "Gender", got[3].Feature)
}
