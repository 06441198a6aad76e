// Package score reads numeric payload fields and turns exam scores into
// percentages without float rounding surprises.
package score

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// ErrNoMaxScore rejects grades whose maximum is zero or negative.
	ErrNoMaxScore = errors.New("maxScore must be positive")
)

// Field pulls a numeric value from an event's Data map.
// JSON numbers decode to float64; strings are parsed as decimals.
// ok is false when the field is missing or not numeric.
func Field(data map[string]interface{}, name string) (d decimal.Decimal, ok bool) {
	v, present := data[name]
	if !present {
		return decimal.Zero, false
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case string:
		parsed, err := decimal.NewFromString(val)
		if err == nil {
			return parsed, true
		}
	}
	return decimal.Zero, false
}

// Percentage returns score/maxScore*100.
func Percentage(score, maxScore decimal.Decimal) (decimal.Decimal, error) {
	if !maxScore.IsPositive() {
		return decimal.Zero, ErrNoMaxScore
	}
	return score.Div(maxScore).Mul(hundred), nil
}

// AtLeast reports whether pct >= threshold.
func AtLeast(pct decimal.Decimal, threshold int64) bool {
	return pct.GreaterThanOrEqual(decimal.NewFromInt(threshold))
}
