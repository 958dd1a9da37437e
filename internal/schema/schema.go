// Package schema defines the fixed feature layout shared by the training
// pipeline and the inference encoder. Any change here changes what a trained
// model means, so both sides read the order and domains from this package only.
package schema

import (
	"fmt"
	"strings"
)

// Feature names in vector order. These double as dataset column headers.
const (
	Fever               = "Fever"
	Cough               = "Cough"
	Fatigue             = "Fatigue"
	DifficultyBreathing = "Difficulty Breathing"
	Age                 = "Age"
	Gender              = "Gender"
	BloodPressure       = "Blood Pressure"
	CholesterolLevel    = "Cholesterol Level"
)

// Target and auxiliary dataset columns.
const (
	Disease         = "Disease"
	OutcomeVariable = "Outcome Variable"
)

// Vector indexes.
const (
	IdxFever = iota
	IdxCough
	IdxFatigue
	IdxDifficultyBreathing
	IdxAge
	IdxGender
	IdxBloodPressure
	IdxCholesterolLevel

	NumFeatures
)

// FeatureNames is the ordered feature list. Index i names vector element i.
var FeatureNames = [NumFeatures]string{
	Fever,
	Cough,
	Fatigue,
	DifficultyBreathing,
	Age,
	Gender,
	BloodPressure,
	CholesterolLevel,
}

// Names returns FeatureNames as a fresh slice.
func Names() []string {
	out := make([]string, NumFeatures)
	copy(out, FeatureNames[:])
	return out
}

// SameOrder reports whether names matches FeatureNames exactly.
func SameOrder(names []string) bool {
	if len(names) != NumFeatures {
		return false
	}
	for i, n := range names {
		if n != FeatureNames[i] {
			return false
		}
	}
	return true
}

// Binary field values.
const (
	Yes    = "Yes"
	No     = "No"
	Male   = "Male"
	Female = "Female"
)

// Severity values for blood pressure and cholesterol.
const (
	Low    = "Low"
	Normal = "Normal"
	High   = "High"
)

// SeverityLevels is the ordered severity scale. Codes are assigned by
// position, never by the order values happen to appear in a dataset.
var SeverityLevels = []string{Low, Normal, High}

// YesNoDomain and GenderDomain list the accepted binary values.
var (
	YesNoDomain  = []string{Yes, No}
	GenderDomain = []string{Male, Female}
)

// EncodeYesNo maps "yes" (any case) to 1 and everything else to 0.
//
// Unrecognized strings fall through to 0. This mirrors how deployed models
// were trained and served; use ParseYesNo to reject them instead.
func EncodeYesNo(s string) float64 {
	if strings.EqualFold(s, Yes) {
		return 1
	}
	return 0
}

// EncodeGender maps "male" (any case) to 1 and everything else to 0.
func EncodeGender(s string) float64 {
	if strings.EqualFold(s, Male) {
		return 1
	}
	return 0
}

// ParseYesNo is the strict form of EncodeYesNo.
func ParseYesNo(s string) (float64, error) {
	switch {
	case strings.EqualFold(s, Yes):
		return 1, nil
	case strings.EqualFold(s, No):
		return 0, nil
	}
	return 0, fmt.Errorf("%q is not one of %v", s, YesNoDomain)
}

// ParseGender is the strict form of EncodeGender.
func ParseGender(s string) (float64, error) {
	switch {
	case strings.EqualFold(s, Male):
		return 1, nil
	case strings.EqualFold(s, Female):
		return 0, nil
	}
	return 0, fmt.Errorf("%q is not one of %v", s, GenderDomain)
}

// Age bounds accepted at the input boundary.
const (
	MinAge = 0
	MaxAge = 120
)
