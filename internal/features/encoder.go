// Package features turns a patient record into the fixed-order numeric
// vector the classifier consumes.
package features

import (
	"github.com/abhisek/medipredict/internal/codec"
	"github.com/abhisek/medipredict/internal/schema"
)

// PatientRecord is the raw categorical input for one prediction.
type PatientRecord struct {
	Fever               string `json:"fever"`
	Cough               string `json:"cough"`
	Fatigue             string `json:"fatigue"`
	DifficultyBreathing string `json:"difficulty_breathing"`
	Age                 int    `json:"age"`
	Gender              string `json:"gender"`
	BloodPressure       string `json:"blood_pressure"`
	CholesterolLevel    string `json:"cholesterol_level"`
}

// Validate range-checks the numeric input. Categorical membership is checked
// by the encoder against the trained mappings.
func (r PatientRecord) Validate() error {
	if r.Age < schema.MinAge || r.Age > schema.MaxAge {
		return &AgeOutOfRangeError{Age: r.Age, Min: schema.MinAge, Max: schema.MaxAge}
	}
	return nil
}

// Vector is an encoded record, ordered as schema.FeatureNames.
type Vector [schema.NumFeatures]float64

// Slice returns the vector as a slice for classifier calls.
func (v Vector) Slice() []float64 {
	out := make([]float64, schema.NumFeatures)
	copy(out, v[:])
	return out
}

// Encoder encodes patient records.
//
// With Strict unset, binary and gender fields that are not Yes/No or
// Male/Female encode as 0, matching the data the deployed models were
// trained on. With Strict set they are rejected.
type Encoder struct {
	Strict bool
}

// Encode builds the feature vector for rec. bp and chol are the trained
// blood pressure and cholesterol mappings.
func (e Encoder) Encode(rec PatientRecord, bp, chol codec.Mapping) (Vector, error) {
	var v Vector

	if !bp.Contains(rec.BloodPressure) {
		return v, invalidValue(schema.BloodPressure, rec.BloodPressure, bp.Keys())
	}
	if !chol.Contains(rec.CholesterolLevel) {
		return v, invalidValue(schema.CholesterolLevel, rec.CholesterolLevel, chol.Keys())
	}

	binary := []struct {
		idx   int
		field string
		value string
	}{
		{schema.IdxFever, schema.Fever, rec.Fever},
		{schema.IdxCough, schema.Cough, rec.Cough},
		{schema.IdxFatigue, schema.Fatigue, rec.Fatigue},
		{schema.IdxDifficultyBreathing, schema.DifficultyBreathing, rec.DifficultyBreathing},
	}
	for _, b := range binary {
		x, err := e.yesNo(b.field, b.value)
		if err != nil {
			return v, err
		}
		v[b.idx] = x
	}

	g, err := e.gender(rec.Gender)
	if err != nil {
		return v, err
	}

	v[schema.IdxAge] = float64(rec.Age)
	v[schema.IdxGender] = g
	v[schema.IdxBloodPressure] = float64(bp[rec.BloodPressure])
	v[schema.IdxCholesterolLevel] = float64(chol[rec.CholesterolLevel])
	return v, nil
}

func (e Encoder) yesNo(field, value string) (float64, error) {
	if !e.Strict {
		return schema.EncodeYesNo(value), nil
	}
	x, err := schema.ParseYesNo(value)
	if err != nil {
		return 0, invalidValue(field, value, schema.YesNoDomain)
	}
	return x, nil
}

func (e Encoder) gender(value string) (float64, error) {
	if !e.Strict {
		return schema.EncodeGender(value), nil
	}
	x, err := schema.ParseGender(value)
	if err != nil {
		return 0, invalidValue(schema.Gender, value, schema.GenderDomain)
	}
	return x, nil
}

func invalidValue(field, value string, accepted []string) error {
	return &InvalidCategoricalValueError{Field: field, Value: value, Accepted: accepted}
}
