package codec

import "fmt"

// UnknownCategoryError is returned when a value (or code) is outside a
// codec's known domain.
type UnknownCategoryError struct {
	Field    string
	Value    string
	Code     *int // set when decoding
	Accepted []string
}

func (e *UnknownCategoryError) Error() string {
	if e.Code != nil {
		return fmt.Sprintf("unknown %s code %d", e.Field, *e.Code)
	}
	if e.Value == "" && len(e.Accepted) > 0 {
		return fmt.Sprintf("no %s values found (expected %v)", e.Field, e.Accepted)
	}
	if len(e.Accepted) > 0 {
		return fmt.Sprintf("unknown %s value %q (expected one of %v)", e.Field, e.Value, e.Accepted)
	}
	return fmt.Sprintf("unknown %s value %q", e.Field, e.Value)
}
