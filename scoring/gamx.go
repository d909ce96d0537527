package scoring

// GAMX is the age-adjusted Q-points variant used for masters rankings: the
// Q-points score multiplied by an age factor that is 1.0 through age 30 and
// grows smoothly per year after, steeper for women. The quadratic term keeps
// the curve close to the published masters tables without shipping the
// tables themselves.

type ageCurve struct {
	linear    float64
	quadratic float64
}

var (
	ageCurveMen   = ageCurve{linear: 0.0082, quadratic: 0.00027}
	ageCurveWomen = ageCurve{linear: 0.0092, quadratic: 0.00035}
)

const (
	ageFactorBase = 30
	ageFactorCap  = 95
)

// AgeFactor returns the masters multiplier for an age. Ages at or below 30
// return exactly 1; ages above 95 are clamped.
func AgeFactor(age int, gender string) float64 {
	if age <= ageFactorBase {
		return 1
	}
	if age > ageFactorCap {
		age = ageFactorCap
	}
	curve := ageCurveMen
	if isFemale(gender) {
		curve = ageCurveWomen
	}
	years := float64(age - ageFactorBase)
	return 1 + curve.linear*years + curve.quadratic*years*years
}

// GAMX returns the age-adjusted score for a total.
func GAMX(total, bodyWeight float64, gender string, age int) float64 {
	if total <= 0 {
		return 0
	}
	return QPoints(total, bodyWeight, gender) * AgeFactor(age, gender)
}
