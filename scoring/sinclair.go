// Package scoring implements the bodyweight and age normalization formulas
// scoreboard projections call: Sinclair, Q-points, the age-adjusted GAMX
// variant, and team point allocation. All functions are pure.
package scoring

import (
	"math"
	"strings"
)

// sinclairCoefficients holds one Olympic cycle's published constants. The
// coefficient for a lifter at or above the cycle's world-record bodyweight b
// is exactly 1.
type sinclairCoefficients struct {
	menA   float64
	menB   float64
	womenA float64
	womenB float64
}

var (
	// 2017-2020 cycle, applied to meets before 2021.
	sinclair2020 = sinclairCoefficients{
		menA:   0.751945030,
		menB:   175.508,
		womenA: 0.783497476,
		womenB: 153.655,
	}
	// 2021-2024 cycle.
	sinclair2024 = sinclairCoefficients{
		menA:   0.722762521,
		menB:   193.609,
		womenA: 0.787004341,
		womenB: 153.757,
	}
)

func coefficientsForYear(year int) sinclairCoefficients {
	if year > 0 && year < 2021 {
		return sinclair2020
	}
	return sinclair2024
}

// SinclairCoefficient returns the multiplier for a lifter of the given
// bodyweight and gender under the coefficient table in force for year.
func SinclairCoefficient(bodyWeight float64, gender string, year int) float64 {
	if bodyWeight <= 0 {
		return 0
	}
	c := coefficientsForYear(year)
	a, b := c.menA, c.menB
	if isFemale(gender) {
		a, b = c.womenA, c.womenB
	}
	if bodyWeight >= b {
		return 1
	}
	x := math.Log10(bodyWeight / b)
	return math.Pow(10, a*x*x)
}

// Sinclair returns the Sinclair score for a total.
func Sinclair(total, bodyWeight float64, gender string, year int) float64 {
	if total <= 0 {
		return 0
	}
	return total * SinclairCoefficient(bodyWeight, gender, year)
}

func isFemale(gender string) bool {
	return strings.EqualFold(gender, "F") || strings.EqualFold(gender, "W")
}
