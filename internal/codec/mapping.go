package codec

import (
	"fmt"
	"slices"
	"sort"

	"github.com/abhisek/medipredict/internal/schema"
)

// Mapping maps a categorical value to the integer code the classifier sees.
// It serializes as a plain JSON object.
type Mapping map[string]int

// Contains reports whether value is in the mapping's domain.
func (m Mapping) Contains(value string) bool {
	_, ok := m[value]
	return ok
}

// Encode returns the code for value.
func (m Mapping) Encode(field, value string) (int, error) {
	code, ok := m[value]
	if !ok {
		return 0, &UnknownCategoryError{Field: field, Value: value, Accepted: m.Keys()}
	}
	return code, nil
}

// Decode returns the value assigned to code.
func (m Mapping) Decode(field string, code int) (string, error) {
	for v, c := range m {
		if c == code {
			return v, nil
		}
	}
	return "", &UnknownCategoryError{Field: field, Code: &code, Accepted: m.Keys()}
}

// Keys returns the domain ordered by code, ties broken by name.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := m[keys[i]], m[keys[j]]
		if ci != cj {
			return ci < cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Equal reports whether both mappings hold the same pairs.
func (m Mapping) Equal(other Mapping) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// FitSeverity builds a severity mapping for the distinct values observed in a
// column. Codes come from the position in schema.SeverityLevels, so
// Low=0, Normal=1, High=2 regardless of row order. A value outside the
// severity scale is an error.
func FitSeverity(field string, values []string) (Mapping, error) {
	rank := make(map[string]int, len(schema.SeverityLevels))
	for i, lvl := range schema.SeverityLevels {
		rank[lvl] = i
	}

	m := make(Mapping)
	for _, v := range values {
		code, ok := rank[v]
		if !ok {
			return nil, &UnknownCategoryError{Field: field, Value: v, Accepted: schema.SeverityLevels}
		}
		m[v] = code
	}
	if len(m) == 0 {
		return nil, &UnknownCategoryError{Field: field, Accepted: schema.SeverityLevels}
	}
	return m, nil
}

// CheckSeverity reports an error unless every value in m is a severity level
// carrying its position in schema.SeverityLevels as code. Such a mapping has
// unique codes, so Decode is unambiguous.
func CheckSeverity(field string, m Mapping) error {
	for _, v := range m.Keys() {
		want := slices.Index(schema.SeverityLevels, v)
		if want < 0 {
			return fmt.Errorf("%s: %q is not a severity level %v", field, v, schema.SeverityLevels)
		}
		if got := m[v]; got != want {
			return fmt.Errorf("%s: %q has code %d, want %d", field, v, got, want)
		}
	}
	return nil
}

// SeverityMapping returns the full Low/Normal/High mapping.
func SeverityMapping() Mapping {
	m := make(Mapping, len(schema.SeverityLevels))
	for i, lvl := range schema.SeverityLevels {
		m[lvl] = i
	}
	return m
}
