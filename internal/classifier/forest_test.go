package classifier

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable builds rows where feature 0 alone determines the class and the
// other features are noise.
func separable(n, nClasses int) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(7, 7))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range n {
		c := i % nClasses
		X[i] = []float64{float64(c*10 + i%5), rng.Float64() * 100, float64(rng.IntN(2))}
		y[i] = c
	}
	return X, y
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NumTrees = 25
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 300, cfg.NumTrees)
	assert.Equal(t, 20, cfg.MaxDepth)
	assert.Equal(t, 3, cfg.MinSamplesSplit)
	assert.Equal(t, 1, cfg.MinSamplesLeaf)
	assert.Equal(t, 0, cfg.MaxFeatures)
	assert.True(t, cfg.BalancedClassWeight)
	assert.True(t, cfg.Bootstrap)
	assert.Equal(t, uint64(42), cfg.Seed)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"trees", func(c *Config) { c.NumTrees = 0 }},
		{"depth", func(c *Config) { c.MaxDepth = 0 }},
		{"split", func(c *Config) { c.MinSamplesSplit = 1 }},
		{"leaf", func(c *Config) { c.MinSamplesLeaf = 0 }},
		{"features", func(c *Config) { c.MaxFeatures = -1 }},
		{"workers", func(c *Config) { c.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestRandomForest_LearnsSeparableData(t *testing.T) {
	X, y := separable(90, 3)
	f := NewRandomForest(smallConfig())
	require.NoError(t, f.Fit(X, y, 3))

	correct := 0
	for i, row := range X {
		got, err := f.Predict(row)
		require.NoError(t, err)
		if got == y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, float64(correct)/float64(len(X)), 0.9)
}

func TestRandomForest_ProbaShapeAndSum(t *testing.T) {
	X, y := separable(60, 4)
	f := NewRandomForest(smallConfig())
	require.NoError(t, f.Fit(X, y, 4))

	p, err := f.PredictProba(X[0])
	require.NoError(t, err)
	require.Len(t, p, 4)
	sum := 0.0
	for _, v := range p {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	pred, err := f.Predict(X[0])
	require.NoError(t, err)
	assert.Equal(t, argmax(p), pred)
}

func TestRandomForest_UnseenClassGetsZeroColumn(t *testing.T) {
	X, y := separable(30, 2)
	f := NewRandomForest(smallConfig())
	// Declare a third class that never appears in y.
	require.NoError(t, f.Fit(X, y, 3))
	p, err := f.PredictProba(X[0])
	require.NoError(t, err)
	require.Len(t, p, 3)
	assert.Equal(t, 0.0, p[2])
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := separable(60, 3)

	cfgA := smallConfig()
	cfgA.Workers = 1
	a := NewRandomForest(cfgA)
	require.NoError(t, a.Fit(X, y, 3))

	cfgB := smallConfig()
	cfgB.Workers = 8
	b := NewRandomForest(cfgB)
	require.NoError(t, b.Fit(X, y, 3))

	for _, row := range X {
		pa, err := a.PredictProba(row)
		require.NoError(t, err)
		pb, err := b.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
	assert.Equal(t, a.FeatureImportances(), b.FeatureImportances())
}

func TestRandomForest_SeedChangesModel(t *testing.T) {
	X, y := separable(60, 3)
	a := NewRandomForest(smallConfig())
	require.NoError(t, a.Fit(X, y, 3))

	cfg := smallConfig()
	cfg.Seed = 1234
	b := NewRandomForest(cfg)
	require.NoError(t, b.Fit(X, y, 3))

	assert.NotEqual(t, a.FeatureImportances(), b.FeatureImportances())
}

func TestRandomForest_FeatureImportances(t *testing.T) {
	X, y := separable(90, 3)
	f := NewRandomForest(smallConfig())
	require.NoError(t, f.Fit(X, y, 3))

	imp := f.FeatureImportances()
	require.Len(t, imp, 3)
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[0], imp[2])
}

func TestRandomForest_SingleClass(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{0, 0, 0}
	f := NewRandomForest(smallConfig())
	require.NoError(t, f.Fit(X, y, 1))
	p, err := f.PredictProba([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, p)
	for _, v := range f.FeatureImportances() {
		assert.Equal(t, 0.0, v)
	}
}

func TestRandomForest_FitErrors(t *testing.T) {
	f := NewRandomForest(smallConfig())
	require.Error(t, f.Fit(nil, nil, 2))
	require.Error(t, f.Fit([][]float64{{1}}, []int{0, 1}, 2))
	require.Error(t, f.Fit([][]float64{{1}, {1, 2}}, []int{0, 1}, 2))
	require.Error(t, f.Fit([][]float64{{1}}, []int{5}, 2))
	require.Error(t, f.Fit([][]float64{{}}, []int{0}, 1))

	bad := smallConfig()
	bad.NumTrees = 0
	require.Error(t, NewRandomForest(bad).Fit([][]float64{{1}}, []int{0}, 1))
}

func TestRandomForest_PredictErrors(t *testing.T) {
	f := NewRandomForest(smallConfig())
	_, err := f.PredictProba([]float64{1, 2, 3})
	require.ErrorIs(t, err, ErrNotFitted)

	X, y := separable(30, 3)
	require.NoError(t, f.Fit(X, y, 3))
	_, err = f.Predict([]float64{1})
	require.Error(t, err)
}

func TestRandomForest_MarshalRoundTrip(t *testing.T) {
	X, y := separable(60, 3)
	f := NewRandomForest(smallConfig())
	require.NoError(t, f.Fit(X, y, 3))

	data, err := Marshal(f)
	require.NoError(t, err)

	c, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, KindRandomForest, c.Kind())
	assert.Equal(t, 3, c.NumClasses())
	assert.Equal(t, 3, c.NumFeatures())

	for _, row := range X {
		want, err := f.PredictProba(row)
		require.NoError(t, err)
		got, err := c.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, f.FeatureImportances(), c.FeatureImportances())
}

func TestRandomForest_MarshalUnfitted(t *testing.T) {
	_, err := NewRandomForest(smallConfig()).MarshalBinary()
	require.ErrorIs(t, err, ErrNotFitted)
}

func TestUnmarshal_UnknownKind(t *testing.T) {
	data, err := Marshal(&fakeKind{})
	require.NoError(t, err)
	_, err = Unmarshal(data)
	require.ErrorContains(t, err, "unknown classifier kind")
}

func TestUnmarshal_Garbage(t *testing.T) {
	_, err := Unmarshal([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestCheckTree(t *testing.T) {
	good := Tree{Nodes: []Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2},
		{Leaf: true, Value: []float64{1, 0}},
		{Leaf: true, Value: []float64{0, 1}},
	}}
	require.NoError(t, checkTree(good, 2, 1))
	require.Error(t, checkTree(good, 3, 1))
	require.Error(t, checkTree(Tree{}, 2, 1))

	loop := Tree{Nodes: []Node{{Feature: 0, Left: 0, Right: 0}}}
	require.Error(t, checkTree(loop, 2, 1))

	badFeature := good
	badFeature.Nodes = append([]Node(nil), good.Nodes...)
	badFeature.Nodes[0].Feature = 5
	require.Error(t, checkTree(badFeature, 2, 1))
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, gini([]float64{4, 0}, 4))
	assert.InDelta(t, 0.5, gini([]float64{2, 2}, 4), 1e-12)
	assert.Equal(t, 0.0, gini([]float64{0, 0}, 0))
	assert.InDelta(t, 1-1.0/3, gini([]float64{1, 1, 1}, 3), 1e-12)
}

func TestClassWeightsBalanced(t *testing.T) {
	f := NewRandomForest(DefaultConfig())
	w := f.classWeights([]int{0, 0, 0, 1}, 3)
	// n=4, two present classes.
	assert.InDelta(t, 4.0/6, w[0], 1e-12)
	assert.InDelta(t, 2.0, w[1], 1e-12)
	assert.Equal(t, 0.0, w[2])
	assert.False(t, math.IsNaN(w[2]))
}

type fakeKind struct{ Stub }

func (*fakeKind) Kind() string { return "nope" }
