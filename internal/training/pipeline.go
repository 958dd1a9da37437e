// Package training fits a disease classifier from a labeled dataset and
// writes the resulting model bundle.
package training

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/codec"
	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/schema"
)

// Options configures a training run.
type Options struct {
	// DatasetPath is read by the load stage unless Dataset is set.
	DatasetPath string
	Dataset     *Dataset

	// OutputDir receives the bundle. Empty skips the persist stage's write,
	// which is useful for dry runs.
	OutputDir string

	Forest classifier.Config

	// TestFraction is the held-out share. Test size is ceil(n*TestFraction).
	TestFraction float64
	SplitSeed    uint64

	// Version is recorded in the metadata. Empty derives one from the
	// training time.
	Version string

	// AIBOM also writes a CycloneDX model card next to the bundle.
	AIBOM bool

	Now func() time.Time
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Forest:       classifier.DefaultConfig(),
		TestFraction: 0.2,
		SplitSeed:    42,
		Now:          time.Now,
	}
}

// Report summarizes a training run.
type Report struct {
	Rows            int
	Classes         []string
	TrainingSamples int
	TestSamples     int
	Accuracy        float64
	Importance      []bundle.FeatureWeight
	OutputDir       string
	Timings         []StageTiming
	Bundle          *bundle.Bundle
}

// StageTiming is how long one stage took.
type StageTiming struct {
	Stage    Stage
	Duration time.Duration
}

// Pipeline runs Load, Encode, Split, Fit, Evaluate and Persist in order.
type Pipeline struct {
	opts Options

	data    *Dataset
	codec   *codec.Codec
	labels  *codec.LabelCodec
	rows    [][]float64
	y       []int
	trainX  [][]float64
	trainY  []int
	testX   [][]float64
	testY   []int
	model   classifier.Classifier
	acc     float64
	weights map[string]float64
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts}
}

// Run executes every stage. The first failing stage aborts the run with a
// *StageError.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageLoad, p.load},
		{StageEncode, p.encode},
		{StageSplit, p.split},
		{StageFit, p.fit},
		{StageEvaluate, p.evaluate},
	}

	rep := &Report{}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: s.stage, Err: err}
		}
		start := time.Now()
		if err := s.fn(); err != nil {
			return nil, &StageError{Stage: s.stage, Err: err}
		}
		rep.Timings = append(rep.Timings, StageTiming{Stage: s.stage, Duration: time.Since(start)})
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}
	start := time.Now()
	b, err := p.persist()
	if err != nil {
		return nil, &StageError{Stage: StagePersist, Err: err}
	}
	rep.Timings = append(rep.Timings, StageTiming{Stage: StagePersist, Duration: time.Since(start)})

	rep.Rows = p.data.Len()
	rep.Classes = p.labels.Classes()
	rep.TrainingSamples = len(p.trainX)
	rep.TestSamples = len(p.testX)
	rep.Accuracy = p.acc
	rep.Importance = b.Metadata.RankedImportance()
	rep.OutputDir = p.opts.OutputDir
	rep.Bundle = b
	return rep, nil
}

func (p *Pipeline) load() error {
	if p.opts.Dataset != nil {
		p.data = p.opts.Dataset
	} else {
		if p.opts.DatasetPath == "" {
			return fmt.Errorf("no dataset path")
		}
		ds, err := LoadFile(p.opts.DatasetPath)
		if err != nil {
			return err
		}
		p.data = ds
	}
	if len(p.data.Records) != len(p.data.Diseases) {
		return fmt.Errorf("dataset has %d records and %d labels", len(p.data.Records), len(p.data.Diseases))
	}
	if p.data.Len() == 0 {
		return fmt.Errorf("dataset has no rows")
	}
	logger.Logf("loaded %d rows", p.data.Len())
	return nil
}

func (p *Pipeline) encode() error {
	bp := make([]string, 0, p.data.Len())
	chol := make([]string, 0, p.data.Len())
	for _, r := range p.data.Records {
		bp = append(bp, r.BloodPressure)
		chol = append(chol, r.CholesterolLevel)
	}
	c, err := codec.Fit(bp, chol)
	if err != nil {
		return err
	}
	labels, err := codec.FitLabels(p.data.Diseases)
	if err != nil {
		return err
	}

	// Training data must be clean: unknown binary values are rejected
	// instead of falling back to 0.
	enc := features.Encoder{Strict: true}
	X := make([][]float64, p.data.Len())
	for i, r := range p.data.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		v, err := enc.Encode(r, c.BloodPressure(), c.Cholesterol())
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		X[i] = v.Slice()
	}
	y, err := labels.EncodeAll(p.data.Diseases)
	if err != nil {
		return err
	}

	p.codec, p.labels, p.rows, p.y = c, labels, X, y
	logger.Logf("encoded %d rows, %d diseases", len(X), labels.Len())
	return nil
}

// splitSizes returns the train and test sizes for n rows.
func splitSizes(n int, testFraction float64) (train, test int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return 0, 0, fmt.Errorf("test fraction must be in (0,1), got %v", testFraction)
	}
	test = int(math.Ceil(float64(n) * testFraction))
	train = n - test
	if train < 1 {
		return 0, 0, fmt.Errorf("%d rows leave no training samples", n)
	}
	return train, test, nil
}

func (p *Pipeline) split() error {
	n := len(p.rows)
	_, nTest, err := splitSizes(n, p.opts.TestFraction)
	if err != nil {
		return err
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewPCG(p.opts.SplitSeed, 0))
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	p.testX, p.testY = nil, nil
	p.trainX, p.trainY = nil, nil
	for k, idx := range perm {
		if k < nTest {
			p.testX = append(p.testX, p.rows[idx])
			p.testY = append(p.testY, p.y[idx])
		} else {
			p.trainX = append(p.trainX, p.rows[idx])
			p.trainY = append(p.trainY, p.y[idx])
		}
	}
	logger.Logf("split %d train / %d test", len(p.trainX), len(p.testX))
	return nil
}

func (p *Pipeline) fit() error {
	logger.Logf("fitting %d trees (max depth %d)", p.opts.Forest.NumTrees, p.opts.Forest.MaxDepth)
	rf := classifier.NewRandomForest(p.opts.Forest)
	if err := rf.Fit(p.trainX, p.trainY, p.labels.Len()); err != nil {
		return err
	}
	p.model = rf
	return nil
}

func (p *Pipeline) evaluate() error {
	correct := 0
	for i, x := range p.testX {
		pred, err := p.model.Predict(x)
		if err != nil {
			return err
		}
		if pred == p.testY[i] {
			correct++
		}
	}
	p.acc = float64(correct) / float64(len(p.testX))

	imp := p.model.FeatureImportances()
	if len(imp) != schema.NumFeatures {
		return fmt.Errorf("classifier reported %d importances, want %d", len(imp), schema.NumFeatures)
	}
	p.weights = make(map[string]float64, schema.NumFeatures)
	for i, name := range schema.FeatureNames {
		p.weights[name] = imp[i]
	}
	logger.Logf("accuracy %.4f (%.2f%%)", p.acc, p.acc*100)
	return nil
}

func (p *Pipeline) persist() (*bundle.Bundle, error) {
	now := p.opts.Now().UTC()
	version := p.opts.Version
	if version == "" {
		version = now.Format("20060102T150405Z")
	}

	b := &bundle.Bundle{
		Classifier: p.model,
		Labels:     p.labels,
		Metadata: bundle.Metadata{
			ModelType:         p.model.Kind(),
			Version:           version,
			Accuracy:          p.acc,
			Features:          schema.Names(),
			NFeatures:         schema.NumFeatures,
			Classes:           p.labels.Classes(),
			NClasses:          p.labels.Len(),
			NEstimators:       p.opts.Forest.NumTrees,
			MaxDepth:          p.opts.Forest.MaxDepth,
			TrainingSamples:   len(p.trainX),
			TestSamples:       len(p.testX),
			FeatureImportance: p.weights,
			Encodings:         p.codec.Encodings(),
			TrainedAt:         now,
		},
		Mappings: bundle.Mappings{
			BPMapping:    p.codec.BloodPressure(),
			CholMapping:  p.codec.Cholesterol(),
			FeatureNames: schema.Names(),
		},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if p.opts.OutputDir == "" {
		return b, nil
	}
	if err := bundle.SaveWith(p.opts.OutputDir, b, bundle.SaveOptions{AIBOM: p.opts.AIBOM}); err != nil {
		return nil, err
	}
	return b, nil
}
