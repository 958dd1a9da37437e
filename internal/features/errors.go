package features

import (
	"fmt"
	"strings"

	"github.com/abhisek/medipredict/internal/schema"
)

// InvalidCategoricalValueError reports patient input outside a field's
// accepted domain. It is a client input error.
type InvalidCategoricalValueError struct {
	Field    string
	Value    string
	Accepted []string
}

func (e *InvalidCategoricalValueError) Error() string {
	return fmt.Sprintf("%s must be one of [%s] (got %q)", e.Field, strings.Join(e.Accepted, ", "), e.Value)
}

// AgeOutOfRangeError reports an age outside [Min, Max]. It is a client input
// error.
type AgeOutOfRangeError struct {
	Age      int
	Min, Max int
}

func (e *AgeOutOfRangeError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d (got %d)", schema.Age, e.Min, e.Max, e.Age)
}
