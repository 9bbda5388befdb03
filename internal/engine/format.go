package engine

import (
	"math"
	"strconv"
	"strings"
)

// MaxFractionDigits caps the fractional digits shown by FormatNumber.
const MaxFractionDigits = 6

// FormatNumber renders v for a calculator display: at most six fractional
// digits, no trailing zeros and no trailing decimal point.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', MaxFractionDigits, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
