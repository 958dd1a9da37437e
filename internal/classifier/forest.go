package classifier

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// KindRandomForest is the Kind of RandomForest models.
const KindRandomForest = "RandomForestClassifier"

func init() {
	Register(KindRandomForest, func(data []byte) (Classifier, error) {
		f := &RandomForest{}
		if err := f.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return f, nil
	})
}

// Config holds random forest hyperparameters.
type Config struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	// MaxFeatures is the number of candidate features per split.
	// Zero means floor(sqrt(n_features)).
	MaxFeatures int

	// BalancedClassWeight weights each class by
	// n_samples / (n_present_classes * class_count).
	BalancedClassWeight bool

	// Bootstrap draws n samples with replacement for each tree.
	Bootstrap bool

	Seed uint64

	// Workers bounds parallel tree fitting. Zero means GOMAXPROCS.
	// Results do not depend on this value.
	Workers int
}

// DefaultConfig returns the production hyperparameters.
func DefaultConfig() Config {
	return Config{
		NumTrees:            300,
		MaxDepth:            20,
		MinSamplesSplit:     3,
		MinSamplesLeaf:      1,
		BalancedClassWeight: true,
		Bootstrap:           true,
		Seed:                42,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	switch {
	case c.NumTrees < 1:
		return fmt.Errorf("num trees must be >= 1, got %d", c.NumTrees)
	case c.MaxDepth < 1:
		return fmt.Errorf("max depth must be >= 1, got %d", c.MaxDepth)
	case c.MinSamplesSplit < 2:
		return fmt.Errorf("min samples split must be >= 2, got %d", c.MinSamplesSplit)
	case c.MinSamplesLeaf < 1:
		return fmt.Errorf("min samples leaf must be >= 1, got %d", c.MinSamplesLeaf)
	case c.MaxFeatures < 0:
		return fmt.Errorf("max features must be >= 0, got %d", c.MaxFeatures)
	case c.Workers < 0:
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// RandomForest is a bagged ensemble of CART trees. Probabilities are the
// mean of the per-tree leaf distributions.
type RandomForest struct {
	cfg         Config
	trees       []Tree
	nClasses    int
	nFeatures   int
	importances []float64
}

// NewRandomForest creates an unfitted forest.
func NewRandomForest(cfg Config) *RandomForest {
	return &RandomForest{cfg: cfg}
}

func (f *RandomForest) Kind() string     { return KindRandomForest }
func (f *RandomForest) NumClasses() int  { return f.nClasses }
func (f *RandomForest) NumFeatures() int { return f.nFeatures }
func (f *RandomForest) NumTrees() int    { return len(f.trees) }

// FeatureImportances returns the mean of per-tree normalized impurity
// decreases, renormalized to sum to 1.
func (f *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// Fit trains the forest. Each tree draws from its own generator seeded by
// (Seed, tree index), so the fitted forest is identical across runs and
// worker counts.
func (f *RandomForest) Fit(X [][]float64, y []int, nClasses int) error {
	if err := f.cfg.Validate(); err != nil {
		return err
	}
	if len(X) == 0 {
		return fmt.Errorf("no training samples")
	}
	if len(X) != len(y) {
		return fmt.Errorf("got %d rows and %d labels", len(X), len(y))
	}
	if nClasses < 1 {
		return fmt.Errorf("nClasses must be >= 1, got %d", nClasses)
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("rows have no features")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return fmt.Errorf("label %d at row %d outside [0,%d)", label, i, nClasses)
		}
	}

	classWeight := f.classWeights(y, nClasses)

	maxFeatures := f.cfg.MaxFeatures
	if maxFeatures == 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	maxFeatures = min(max(maxFeatures, 1), nFeatures)

	params := treeParams{
		maxDepth:        f.cfg.MaxDepth,
		minSamplesSplit: f.cfg.MinSamplesSplit,
		minSamplesLeaf:  f.cfg.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	trees := make([]Tree, f.cfg.NumTrees)
	imps := make([][]float64, f.cfg.NumTrees)

	workers := f.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for t := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(f.cfg.Seed, uint64(t)))
			w := f.sampleWeights(y, classWeight, rng)
			trees[t], imps[t] = newTreeBuilder(X, y, w, nClasses, params, rng).fit()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	importances := make([]float64, nFeatures)
	for _, imp := range imps {
		for i, v := range imp {
			importances[i] += v
		}
	}
	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}

	f.trees = trees
	f.nClasses = nClasses
	f.nFeatures = nFeatures
	f.importances = importances
	return nil
}

func (f *RandomForest) classWeights(y []int, nClasses int) []float64 {
	w := make([]float64, nClasses)
	if !f.cfg.BalancedClassWeight {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make([]int, nClasses)
	for _, label := range y {
		counts[label]++
	}
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for i, c := range counts {
		if c > 0 {
			w[i] = float64(len(y)) / float64(present*c)
		}
	}
	return w
}

func (f *RandomForest) sampleWeights(y []int, classWeight []float64, rng *rand.Rand) []float64 {
	n := len(y)
	w := make([]float64, n)
	if !f.cfg.Bootstrap {
		for i, label := range y {
			w[i] = classWeight[label]
		}
		return w
	}
	for range n {
		w[rng.IntN(n)]++
	}
	for i, label := range y {
		w[i] *= classWeight[label]
	}
	return w
}

// PredictProba returns the mean class distribution over all trees.
func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if err := checkInput(x, f.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, f.nClasses)
	for i := range f.trees {
		for c, p := range f.trees[i].proba(x) {
			out[c] += p
		}
	}
	n := float64(len(f.trees))
	for c := range out {
		out[c] /= n
	}
	return out, nil
}

// Predict returns the class with the highest mean probability.
func (f *RandomForest) Predict(x []float64) (int, error) {
	p, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(p), nil
}

type forestBlob struct {
	Version     int
	Config      Config
	NumClasses  int
	NumFeatures int
	Trees       []Tree
	Importances []float64
}

const forestBlobVersion = 1

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *RandomForest) MarshalBinary() ([]byte, error) {
	if f.nFeatures == 0 {
		return nil, ErrNotFitted
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestBlob{
		Version:     forestBlobVersion,
		Config:      f.cfg,
		NumClasses:  f.nClasses,
		NumFeatures: f.nFeatures,
		Trees:       f.trees,
		Importances: f.importances,
	})
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (f *RandomForest) UnmarshalBinary(data []byte) error {
	var blob forestBlob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&blob); err != nil {
		return fmt.Errorf("decode forest: %w", err)
	}
	if blob.Version != forestBlobVersion {
		return fmt.Errorf("unsupported forest version %d", blob.Version)
	}
	if len(blob.Trees) == 0 || blob.NumClasses < 1 || blob.NumFeatures < 1 {
		return fmt.Errorf("forest blob is empty")
	}
	for ti, t := range blob.Trees {
		if err := checkTree(t, blob.NumClasses, blob.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	*f = RandomForest{
		cfg:         blob.Config,
		trees:       blob.Trees,
		nClasses:    blob.NumClasses,
		nFeatures:   blob.NumFeatures,
		importances: blob.Importances,
	}
	return nil
}

// checkTree rejects trees whose links or leaf widths would make prediction
// panic or misalign class ids.
func checkTree(t Tree, nClasses, nFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if len(n.Value) != nClasses {
				return fmt.Errorf("node %d has %d class values, want %d", i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}
