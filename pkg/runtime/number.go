package runtime

import (
	"math"
	"strconv"
)

// integerTolerance is how close a value must be to its nearest integer to be
// printed without a fractional part.
const integerTolerance = 1e-9

// maxExactInteger bounds the integer fast path to values an int64 holds
// exactly; anything larger falls through to the general format.
const maxExactInteger = 1 << 53

// FormatNumber renders a value the way print does: near-integers print as
// integers, everything else with 12 significant digits.
func FormatNumber(v float64) string {
	rounded := math.Round(v)
	if math.Abs(v-rounded) < integerTolerance && math.Abs(rounded) < maxExactInteger {
		return strconv.FormatInt(int64(rounded), 10)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}
