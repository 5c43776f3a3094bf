package profile

import (
	"errors"
	"fmt"
	"math"
)

var ErrImplausibleBody = errors.New("height/weight out of plausible range")

// BMI is a body-mass-index reading with its WHO category.
type BMI struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

func (b BMI) String() string {
	return fmt.Sprintf("%.1f (%s)", b.Value, b.Category)
}

// BMI computes the index from the profile's height (cm) and weight (kg).
func (p Profile) BMI() (BMI, error) {
	heightCm := float64(p.Height)
	if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) {
		return BMI{}, ErrImplausibleBody
	}
	if heightCm <= 0 || p.Weight <= 0 {
		return BMI{}, errors.New("height and weight must be positive")
	}
	// Sanity checks to avoid garbage input
	if heightCm < 50 || heightCm > 250 || p.Weight < 10 || p.Weight > 400 {
		return BMI{}, ErrImplausibleBody
	}

	h := heightCm / 100.0
	value := p.Weight / (h * h)
	return BMI{Value: value, Category: bmiCategory(value)}, nil
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}
