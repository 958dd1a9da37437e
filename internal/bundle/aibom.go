package bundle

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/abhisek/medipredict/internal/schema"
)

// BuildAIBOM describes b as a CycloneDX machine-learning model component
// with a model card.
func BuildAIBOM(b *Bundle) *cdx.BOM {
	md := &b.Metadata

	inputs := make([]cdx.MLInputOutputParameters, 0, schema.NumFeatures)
	for _, f := range schema.FeatureNames {
		inputs = append(inputs, cdx.MLInputOutputParameters{Format: "feature:" + f})
	}
	outputs := []cdx.MLInputOutputParameters{{Format: "application/json"}}

	metrics := []cdx.MLPerformanceMetric{
		{Type: "accuracy", Value: strconv.FormatFloat(md.Accuracy, 'f', 4, 64), Slice: "holdout"},
	}
	for _, fw := range md.RankedImportance() {
		metrics = append(metrics, cdx.MLPerformanceMetric{
			Type:  "feature_importance",
			Value: strconv.FormatFloat(fw.Importance, 'f', 4, 64),
			Slice: fw.Feature,
		})
	}

	props := []cdx.Property{
		{Name: "medipredict:n_classes", Value: strconv.Itoa(md.NClasses)},
		{Name: "medipredict:n_estimators", Value: strconv.Itoa(md.NEstimators)},
		{Name: "medipredict:max_depth", Value: strconv.Itoa(md.MaxDepth)},
		{Name: "medipredict:training_samples", Value: strconv.Itoa(md.TrainingSamples)},
		{Name: "medipredict:test_samples", Value: strconv.Itoa(md.TestSamples)},
		{Name: "medipredict:classes", Value: strings.Join(md.Classes, "|")},
	}

	version := md.Version
	if version == "" {
		version = "unversioned"
	}

	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{
		Component: &cdx.Component{
			BOMRef:     "model:" + md.ModelType + "@" + version,
			Type:       cdx.ComponentTypeMachineLearningModel,
			Name:       "disease-predictor",
			Version:    version,
			Properties: &props,
			ModelCard: &cdx.MLModelCard{
				ModelParameters: &cdx.MLModelParameters{
					Approach:           &cdx.MLModelParametersApproach{Type: cdx.MLModelParametersApproachTypeSupervised},
					Task:               "classification",
					ArchitectureFamily: "decision-tree-ensemble",
					ModelArchitecture:  md.ModelType,
					Inputs:             &inputs,
					Outputs:            &outputs,
				},
				QuantitativeAnalysis: &cdx.MLQuantitativeAnalysis{PerformanceMetrics: &metrics},
			},
		},
	}
	if !md.TrainedAt.IsZero() {
		bom.Metadata.Timestamp = md.TrainedAt.UTC().Format(time.RFC3339)
	}
	return bom
}

func encodeAIBOM(w io.Writer, b *Bundle) error {
	enc := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON)
	enc.SetPretty(true)
	if err := enc.Encode(BuildAIBOM(b)); err != nil {
		return fmt.Errorf("encode AI-BOM: %w", err)
	}
	return nil
}

// ReadAIBOM reads a model card written by SaveWith.
func ReadAIBOM(path string) (*cdx.BOM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(f, cdx.BOMFileFormatJSON).Decode(bom); err != nil {
		return nil, fmt.Errorf("decode AI-BOM: %w", err)
	}
	return bom, nil
}
