// Package codec converts human-readable categorical values to the integer
// codes a classifier is trained on, and back.
package codec

import (
	"fmt"
	"strings"

	"github.com/abhisek/medipredict/internal/schema"
)

var (
	yesNoMapping  = Mapping{schema.Yes: 1, schema.No: 0}
	genderMapping = Mapping{schema.Male: 1, schema.Female: 0}
)

// Codec is the categorical codec for every non-numeric feature. Binary
// fields use the fixed Yes/No and Male/Female rules; blood pressure and
// cholesterol use the mappings produced by training.
type Codec struct {
	fields map[string]Mapping
}

// New builds a Codec from the trained severity mappings.
func New(bp, chol Mapping) *Codec {
	return &Codec{fields: map[string]Mapping{
		schema.Fever:               yesNoMapping,
		schema.Cough:               yesNoMapping,
		schema.Fatigue:             yesNoMapping,
		schema.DifficultyBreathing: yesNoMapping,
		schema.Gender:              genderMapping,
		schema.BloodPressure:       bp,
		schema.CholesterolLevel:    chol,
	}}
}

// Fit derives the severity mappings from the distinct values in the
// blood pressure and cholesterol columns.
func Fit(bpValues, cholValues []string) (*Codec, error) {
	bp, err := FitSeverity(schema.BloodPressure, bpValues)
	if err != nil {
		return nil, err
	}
	chol, err := FitSeverity(schema.CholesterolLevel, cholValues)
	if err != nil {
		return nil, err
	}
	return New(bp, chol), nil
}

// Encode returns the integer code for value in field.
func (c *Codec) Encode(field, value string) (int, error) {
	m, err := c.mapping(field)
	if err != nil {
		return 0, err
	}
	return m.Encode(field, value)
}

// Decode returns the value that code stands for in field.
func (c *Codec) Decode(field string, code int) (string, error) {
	m, err := c.mapping(field)
	if err != nil {
		return "", err
	}
	return m.Decode(field, code)
}

// Domain returns the accepted values for field, ordered by code.
func (c *Codec) Domain(field string) []string {
	m, ok := c.fields[field]
	if !ok {
		return nil
	}
	return m.Keys()
}

// BloodPressure returns the blood pressure mapping.
func (c *Codec) BloodPressure() Mapping { return c.fields[schema.BloodPressure] }

// Cholesterol returns the cholesterol mapping.
func (c *Codec) Cholesterol() Mapping { return c.fields[schema.CholesterolLevel] }

// Encodings returns every field mapping keyed by snake_case field name,
// the shape recorded in model metadata.
func (c *Codec) Encodings() map[string]Mapping {
	out := make(map[string]Mapping, len(c.fields))
	for field, m := range c.fields {
		cp := make(Mapping, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[SnakeCase(field)] = cp
	}
	return out
}

func (c *Codec) mapping(field string) (Mapping, error) {
	m, ok := c.fields[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not categorical", field)
	}
	return m, nil
}

// SnakeCase turns "Difficulty Breathing" into "difficulty_breathing".
func SnakeCase(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
