package assessment

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/yanqian/health-advisor/pkg/errors"
)

var activityMultipliers = map[string]float64{
	ActivitySedentary:  1.2,
	ActivityLightly:    1.375,
	ActivityModerately: 1.55,
	ActivityVery:       1.725,
}

// ActivityMultiplier returns the TDEE multiplier for a level.
func ActivityMultiplier(level string) (float64, bool) {
	m, ok := activityMultipliers[strings.ToLower(strings.TrimSpace(level))]
	return m, ok
}

// InterpretBMI buckets a BMI value. Lower bounds are inclusive.
func InterpretBMI(bmi float64) string {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// BMR applies the Mifflin-St Jeor equation.
func BMR(gender string, age int, heightCm, weightKg float64) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if strings.EqualFold(strings.TrimSpace(gender), GenderMale) {
		return base + 5
	}
	return base - 161
}

// Calculate derives BMI, BMR and calorie needs from a profile.
func Calculate(p Profile) (Metrics, error) {
	if p.Height <= 0 {
		return Metrics{}, apperrors.Wrap(apperrors.CodeInvalidInput, "height must be positive", nil)
	}
	if p.Weight <= 0 {
		return Metrics{}, apperrors.Wrap(apperrors.CodeInvalidInput, "weight must be positive", nil)
	}
	multiplier, ok := ActivityMultiplier(p.ActivityLevel)
	if !ok {
		return Metrics{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unknown activity level %q", p.ActivityLevel), nil)
	}

	heightM := p.Height / 100
	bmi := p.Weight / (heightM * heightM)
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		return Metrics{}, apperrors.Wrap(apperrors.CodeInvalidInput, "bmi is not a finite number", nil)
	}
	bmr := BMR(p.Gender, p.Age, p.Height, p.Weight)

	return Metrics{
		BMI:          BMI{Value: bmi, Interpretation: InterpretBMI(bmi)},
		BMR:          bmr,
		CalorieNeeds: bmr * multiplier,
	}, nil
}
