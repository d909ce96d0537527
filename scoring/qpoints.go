package scoring

import (
	"math"
)

// Q-points scale a total by a logistic curve of bodyweight. Unlike Sinclair
// the curve keeps discriminating between heavy lifters instead of clamping
// to 1 above a reference bodyweight.
type qpointsCurve struct {
	scale float64
	shift float64
	decay float64
}

var (
	qpointsMen   = qpointsCurve{scale: 463.28, shift: 2.196e6, decay: 0.0935}
	qpointsWomen = qpointsCurve{scale: 306.54, shift: 4.6219e4, decay: 0.0783}
)

func (c qpointsCurve) at(bodyWeight float64) float64 {
	return c.scale / (1 + c.shift*math.Exp(-c.decay*bodyWeight))
}

// QPointsCoefficient returns the divisor-free multiplier form: points per kg
// of total for the given bodyweight and gender.
func QPointsCoefficient(bodyWeight float64, gender string) float64 {
	if bodyWeight <= 0 {
		return 0
	}
	curve := qpointsMen
	if isFemale(gender) {
		curve = qpointsWomen
	}
	reference := curve.at(bodyWeight)
	if reference <= 0 {
		return 0
	}
	return 100 / reference
}

// QPoints returns the Q-points score for a total.
func QPoints(total, bodyWeight float64, gender string) float64 {
	if total <= 0 {
		return 0
	}
	return total * QPointsCoefficient(bodyWeight, gender)
}
