package training

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/classifier"
	"github.com/abhisek/medipredict/internal/features"
)

const header = "Disease,Fever,Cough,Fatigue,Difficulty Breathing,Age,Gender,Blood Pressure,Cholesterol Level,Outcome Variable\n"

// syntheticCSV builds a dataset where the disease is fully determined by
// fever and cough.
func syntheticCSV(n int) string {
	var b strings.Builder
	b.WriteString(header)
	levels := []string{"Low", "Normal", "High"}
	for i := 0; i < n; i++ {
		var disease, fever, cough string
		switch i % 3 {
		case 0:
			disease, fever, cough = "Asthma", "No", "Yes"
		case 1:
			disease, fever, cough = "Influenza", "Yes", "Yes"
		default:
			disease, fever, cough = "Common Cold", "No", "No"
		}
		gender := "Male"
		if i%2 == 0 {
			gender = "Female"
		}
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%d,%s,%s,%s,Positive\n",
			disease, fever, cough, "Yes", "No", 20+i%50, gender, levels[(i/3)%3], levels[(i/9)%3])
	}
	return b.String()
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.Forest.NumTrees = 15
	opts.Forest.Workers = 2
	opts.Now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return opts
}

func TestLoadCSV(t *testing.T) {
	in := "Age,Disease,Gender,Fever,Cough,Fatigue,Difficulty Breathing,Blood Pressure,Cholesterol Level\n" +
		"45, Influenza ,Male,Yes,Yes,Yes,No,High,Normal\n" +
		"30,Asthma,Female,No,Yes,No,Yes,Low,Low\n"
	ds, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"Influenza", "Asthma"}, ds.Diseases)
	assert.Equal(t, features.PatientRecord{
		Fever: "Yes", Cough: "Yes", Fatigue: "Yes", DifficultyBreathing: "No",
		Age: 45, Gender: "Male", BloodPressure: "High", CholesterolLevel: "Normal",
	}, ds.Records[0])
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "empty"},
		{"header only", header, "no rows"},
		{"missing column", "Disease,Fever\nFlu,Yes\n", "missing columns"},
		{"bad age", header + "Flu,Yes,Yes,Yes,No,old,Male,High,Normal,Positive\n", "invalid age"},
		{"empty disease", header + ",Yes,Yes,Yes,No,40,Male,High,Normal,Positive\n", "empty disease"},
		{"short row", header + "Flu,Yes\n", "read row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSplitSizes(t *testing.T) {
	tests := []struct {
		n, train, test int
		wantErr        bool
	}{
		{349, 279, 70, false},
		{10, 8, 2, false},
		{11, 8, 3, false},
		{2, 1, 1, false},
		{1, 0, 0, true},
	}
	for _, tt := range tests {
		train, test, err := splitSizes(tt.n, 0.2)
		if (err != nil) != tt.wantErr {
			t.Fatalf("splitSizes(%d) err = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if train != tt.train || test != tt.test {
			t.Errorf("splitSizes(%d) = %d/%d, want %d/%d", tt.n, train, test, tt.train, tt.test)
		}
	}
}

func TestRun_WritesLoadableBundle(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(syntheticCSV(90)))
	require.NoError(t, err)

	opts := testOptions(t)
	opts.Dataset = ds
	opts.OutputDir = filepath.Join(t.TempDir(), "model")
	opts.AIBOM = true

	rep, err := New(opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 90, rep.Rows)
	assert.Equal(t, 72, rep.TrainingSamples)
	assert.Equal(t, 18, rep.TestSamples)
	assert.Equal(t, []string{"Asthma", "Common Cold", "Influenza"}, rep.Classes)
	assert.GreaterOrEqual(t, rep.Accuracy, 0.9)
	assert.Len(t, rep.Timings, len(Stages))
	require.Len(t, rep.Importance, 8)

	b, err := bundle.Load(opts.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, classifier.KindRandomForest, b.Metadata.ModelType)
	assert.Equal(t, "20260501T120000Z", b.Metadata.Version)
	assert.Equal(t, 3, b.Classifier.NumClasses())
	assert.Equal(t, 15, b.Metadata.NEstimators)

	sum := 0.0
	for _, v := range b.Metadata.FeatureImportance {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, b.Metadata.FeatureImportance["Cough"], 0.0)
	// Fatigue and difficulty breathing are constant in the data.
	assert.Zero(t, b.Metadata.FeatureImportance["Fatigue"])

	assert.FileExists(t, filepath.Join(opts.OutputDir, bundle.AIBOMFile))
}

func TestRun_Deterministic(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(syntheticCSV(60)))
	require.NoError(t, err)

	run := func(workers int) *Report {
		opts := testOptions(t)
		opts.Dataset = ds
		opts.Forest.Workers = workers
		rep, err := New(opts).Run(context.Background())
		require.NoError(t, err)
		return rep
	}
	a, b := run(1), run(4)
	assert.Equal(t, a.Accuracy, b.Accuracy)
	assert.Equal(t, a.Importance, b.Importance)

	x := []float64{1, 1, 1, 0, 45, 1, 2, 1}
	pa, err := a.Bundle.Classifier.PredictProba(x)
	require.NoError(t, err)
	pb, err := b.Bundle.Classifier.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestRun_StageErrors(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		csv   string
		path  string
		stage Stage
	}{
		{"missing file", context.Background(), "", filepath.Join(t.TempDir(), "nope.csv"), StageLoad},
		{"canceled", canceled, syntheticCSV(30), "", StageLoad},
		{"unknown severity", context.Background(),
			header + "Flu,Yes,Yes,Yes,No,40,Male,Critical,Normal,Positive\n" + "Cold,No,No,No,No,30,Female,Low,Low,Negative\n",
			"", StageEncode},
		{"bad binary value", context.Background(),
			header + "Flu,maybe,Yes,Yes,No,40,Male,High,Normal,Positive\n" + "Cold,No,No,No,No,30,Female,Low,Low,Negative\n",
			"", StageEncode},
		{"age out of range", context.Background(),
			header + "Flu,Yes,Yes,Yes,No,140,Male,High,Normal,Positive\n" + "Cold,No,No,No,No,30,Female,Low,Low,Negative\n",
			"", StageEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			opts.DatasetPath = tt.path
			if tt.csv != "" {
				ds, err := LoadCSV(strings.NewReader(tt.csv))
				require.NoError(t, err)
				opts.Dataset = ds
			}

			_, err := New(opts).Run(tt.ctx)
			var se *StageError
			require.True(t, errors.As(err, &se), "err = %v", err)
			assert.Equal(t, tt.stage, se.Stage)
		})
	}
}

func TestRun_BadForestConfigFailsAtFit(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader(syntheticCSV(30)))
	require.NoError(t, err)
	opts := testOptions(t)
	opts.Dataset = ds
	opts.Forest.NumTrees = 0

	_, err = New(opts).Run(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFit, se.Stage)
}

func TestRun_ClassMissingFromTrainSplit(t *testing.T) {
	// "Rare" appears once; whichever split it lands in, the model must
	// still cover every class id.
	csv := syntheticCSV(30) + "Rare,Yes,No,No,Yes,70,Male,Low,High,Positive\n"
	ds, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	opts := testOptions(t)
	opts.Dataset = ds

	rep, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Bundle.Classifier.NumClasses())

	p, err := rep.Bundle.Classifier.PredictProba([]float64{1, 0, 0, 1, 70, 1, 0, 2})
	require.NoError(t, err)
	assert.Len(t, p, 4)
}
