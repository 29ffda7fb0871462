package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoData marks a counter that has no value yet. Count renders it as "-".
const NoData uint64 = math.MaxUint64

// minNormal is the smallest positive normal float64.
const minNormal = 0x1p-1022

const (
	pctNone   = "    -"
	msNone    = "      -"
	scoreNone = "    -"
	countNone = "        -"
)

// APIFloat formats a metric for machine consumption with two decimals.
// NaN and infinite values become an empty string.
func APIFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Pct renders a percentage in a 5 characters field, from "  0.0" to "100.0".
//
// Values in (0, 0.1) show as " <0.1" and anything at or above 100.001 is
// clamped to "100.0". Negative (including -0) and non-finite input is "    -".
func Pct(v float64) string {
	if math.Signbit(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return pctNone
	}

	switch {
	case v == 0:
		return "  0.0"
	case v < 0.1:
		return " <0.1"
	case v >= 100.001:
		return "100.0"
	default:
		return fmt.Sprintf("%5.1f", v)
	}
}

// PctString is Pct for a value already rendered as text. Text that does not
// parse as a number is treated as invalid.
func PctString(s string) string {
	return Pct(parseOr(s, -1))
}

// Millis renders a duration in milliseconds in a 7 characters field, from
// "   0.00" to "9999.99". Slower values show as ">10secs" and values under
// 0.01 as "  <0.01". Negative, non-finite and subnormal input is "      -".
func Millis(v float64) string {
	if math.Signbit(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return msNone
	}

	switch {
	case v == 0:
		return "   0.00"
	case v < minNormal:
		return msNone
	case v >= 9999.99:
		return ">10secs"
	case v < 0.01:
		return "  <0.01"
	default:
		return fmt.Sprintf("%7.2f", v)
	}
}

// MillisString is Millis for a value already rendered as text.
func MillisString(s string) string {
	return Millis(parseOr(s, -1))
}

// Score renders a signed health score in a 6 characters field with an
// explicit sign, from "-100.0" to "+100.0". Zero is a blank field.
func Score(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return scoreNone
	}

	switch {
	case v == 0:
		return "      "
	case v > 0 && v < 0.1:
		return "  <0.1"
	case v >= 100.001:
		return "+100.0"
	case v < 0 && v > -0.1:
		return "  -0.1"
	case v <= -100:
		return "-100.0"
	default:
		return fmt.Sprintf("%+6.1f", v)
	}
}

// ScoreString is Score for a value already rendered as text. Unparsable
// text renders like a missing sample.
func ScoreString(s string) string {
	return Score(parseOr(s, math.NaN()))
}

// Count renders a counter right-justified in a 9 characters field.
// NoData shows as "-" and values above 99999999 as ">99999999".
func Count(v uint64) string {
	switch {
	case v == NoData:
		return countNone
	case v > 99999999:
		return ">99999999"
	case v == 0:
		return "        0"
	default:
		return fmt.Sprintf("%9d", v)
	}
}

// Count32 is Count for 32-bit counters, where math.MaxUint32 means no data.
func Count32(v uint32) string {
	if v == math.MaxUint32 {
		return Count(NoData)
	}
	return Count(uint64(v))
}

func parseOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}
