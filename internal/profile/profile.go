/*
Package profile holds the biometric and lifestyle parameters a user submits on the
Generate tab. A Profile lives only for the duration of one form submission.
*/
package profile

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Select options offered by the form. The first entry of each list is the form default.
var (
	Genders       = []string{"Male", "Female", "Other"}
	FitnessLevels = []string{"Beginner", "Intermediate", "Advanced"}
	StressLevels  = []string{"Low", "Medium", "High"}
)

// Profile is the user's submission from the Generate tab.
type Profile struct {
	Name               string  `json:"name" form:"name"`
	Weight             float64 `json:"weight" form:"weight"` // kg
	Gender             string  `json:"gender" form:"gender"`
	Age                int     `json:"age" form:"age"`       // years
	Height             int     `json:"height" form:"height"` // cm
	FitnessLevel       string  `json:"fitness_level" form:"fitness_level"`
	MedicalConditions  string  `json:"medical_conditions" form:"medical_conditions"`
	DietaryPreferences string  `json:"dietary_preferences" form:"dietary_preferences"`
	SleepPatterns      string  `json:"sleep_patterns" form:"sleep_patterns"`
	Experience         string  `json:"experience" form:"experience"`
	StressLevel        string  `json:"stress_level" form:"stress_level"`
	Goals              string  `json:"goals" form:"goals"`
}

// ValidationError collects every invalid field of a submission, keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Default returns the profile the empty form starts from.
func Default() Profile {
	return Profile{
		Gender:       Genders[0],
		FitnessLevel: FitnessLevels[0],
		StressLevel:  StressLevels[0],
	}
}

// FromForm parses a submitted form. Numeric fields that do not parse are reported
// together with the Validate errors so the form can show everything at once.
func FromForm(values url.Values) (Profile, error) {
	verr := &ValidationError{}

	p := Profile{
		Name:               strings.TrimSpace(values.Get("name")),
		Gender:             strings.TrimSpace(values.Get("gender")),
		FitnessLevel:       strings.TrimSpace(values.Get("fitness_level")),
		MedicalConditions:  strings.TrimSpace(values.Get("medical_conditions")),
		DietaryPreferences: strings.TrimSpace(values.Get("dietary_preferences")),
		SleepPatterns:      strings.TrimSpace(values.Get("sleep_patterns")),
		Experience:         strings.TrimSpace(values.Get("experience")),
		StressLevel:        strings.TrimSpace(values.Get("stress_level")),
		Goals:              strings.TrimSpace(values.Get("goals")),
	}

	if raw := strings.TrimSpace(values.Get("weight")); raw != "" {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
			verr.add("weight", "must be a number")
			w = 0
		}
		p.Weight = w
	}
	if raw := strings.TrimSpace(values.Get("age")); raw != "" {
		a, err := strconv.Atoi(raw)
		if err != nil {
			verr.add("age", "must be a whole number")
		}
		p.Age = a
	}
	if raw := strings.TrimSpace(values.Get("height")); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil {
			verr.add("height", "must be a whole number")
		}
		p.Height = h
	}

	if err := p.Validate(); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			for k, v := range ve.Fields {
				verr.add(k, v)
			}
		}
	}

	if len(verr.Fields) > 0 {
		return p, verr
	}
	return p, nil
}

// Validate checks enum membership and numeric lower bounds.
func (p Profile) Validate() error {
	verr := &ValidationError{}

	switch {
	case math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0):
		verr.add("weight", "must be a number")
	case p.Weight < 0:
		verr.add("weight", "must be 0 or more")
	}
	if p.Age < 0 {
		verr.add("age", "must be 0 or more")
	}
	if p.Height < 0 {
		verr.add("height", "must be 0 or more")
	}
	if !oneOf(p.Gender, Genders) {
		verr.add("gender", "must be one of "+strings.Join(Genders, ", "))
	}
	if !oneOf(p.FitnessLevel, FitnessLevels) {
		verr.add("fitness_level", "must be one of "+strings.Join(FitnessLevels, ", "))
	}
	if !oneOf(p.StressLevel, StressLevels) {
		verr.add("stress_level", "must be one of "+strings.Join(StressLevels, ", "))
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// WeightString formats the weight with at least one decimal ("70.0", "70.25").
func (p Profile) WeightString() string {
	if p.Weight == math.Trunc(p.Weight) {
		return strconv.FormatFloat(p.Weight, 'f', 1, 64)
	}
	return strconv.FormatFloat(p.Weight, 'f', -1, 64)
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
