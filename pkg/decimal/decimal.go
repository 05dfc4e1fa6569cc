// Package decimal implements a fixed-point numeric type for prices, sizes,
// and indicator values.
//
// A Decimal is a signed magnitude: a sign (+1 or -1) and a uint64 scaled by
// 10^6. There is exactly one representation of zero (sign=+1, raw=0).
// Arithmetic is exact except for multiplication, which truncates the extra
// six digits, and division, which truncates to six fractional digits.
// Division by zero and multiplication overflow are programmer errors and
// panic rather than return an error — callers are expected to guard against
// both (see spec.md §4.1, §7).
package decimal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Digits is the number of fractional digits a Decimal carries.
const Digits = 6

// Scale is 10^Digits, the factor raw magnitudes are multiplied by.
const Scale = 1_000_000

// Max is the largest magnitude representable without overflow.
const Max = math.MaxUint64 / Scale

// Zero is the canonical zero value: sign +1, magnitude 0.
var Zero = Decimal{sign: 1, raw: 0}

// One is the Decimal value 1.
var One = Decimal{sign: 1, raw: Scale}

// Decimal is a signed fixed-point number with six fractional digits.
// The zero value of Decimal is NOT a valid Decimal — always construct via
// Zero, FromInt, FromFloat, or Parse.
type Decimal struct {
	sign int8 // -1 or +1; always +1 when raw == 0
	raw  uint64
}

// FromInt constructs an exact Decimal from a signed integer.
func FromInt(v int64) Decimal {
	if v == 0 {
		return Zero
	}
	sign := int8(1)
	mag := uint64(v)
	if v < 0 {
		sign = -1
		mag = uint64(-v)
	}
	if mag > Max {
		panic("decimal: integer overflows Decimal range")
	}
	return Decimal{sign: sign, raw: mag * Scale}
}

// FromFloat constructs a Decimal from a float64, rounding to the nearest
// representable six-digit value. NaN, infinite, and out-of-range values
// fail.
func FromFloat(v float64) (Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Decimal{}, fmt.Errorf("decimal: cannot convert NaN or infinite value %v", v)
	}
	if v == 0 {
		return Zero, nil
	}
	if math.Abs(v) > float64(Max) {
		return Decimal{}, fmt.Errorf("decimal: value %v exceeds maximum magnitude %d", v, Max)
	}

	sign := int8(1)
	abs := v
	if v < 0 {
		sign = -1
		abs = -v
	}
	raw := uint64(math.Round(abs * Scale))
	return Decimal{sign: sign, raw: raw}, nil
}

// MustFromFloat is FromFloat but panics on error. Intended for literals in
// tests and static configuration, not for parsing untrusted input.
func MustFromFloat(v float64) Decimal {
	d, err := FromFloat(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse constructs a Decimal from a decimal string such as "123.456789" or
// "-0.5". Fractional digits beyond six are truncated (not rounded).
// Multiple decimal points and values that overflow Max are rejected.
func Parse(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, fmt.Errorf("decimal: cannot parse empty string")
	}

	sign := int8(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return Decimal{}, fmt.Errorf("decimal: malformed input")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Decimal{}, fmt.Errorf("decimal: multiple decimal points in %q", s)
	}

	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal: invalid integer part %q: %w", intPart, err)
	}
	if whole > Max {
		return Decimal{}, fmt.Errorf("decimal: value %q exceeds maximum magnitude %d", s, Max)
	}

	var frac uint64
	if len(parts) == 2 {
		fracPart := parts[1]
		if len(fracPart) > Digits {
			fracPart = fracPart[:Digits] // truncate, not round
		}
		for len(fracPart) < Digits {
			fracPart += "0"
		}
		frac, err = strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return Decimal{}, fmt.Errorf("decimal: invalid fractional part %q: %w", parts[1], err)
		}
	}
	if frac > math.MaxUint64-whole*Scale {
		return Decimal{}, fmt.Errorf("decimal: value %q exceeds maximum magnitude %d", s, Max)
	}

	raw := whole*Scale + frac
	if raw == 0 {
		return Zero, nil
	}
	return Decimal{sign: sign, raw: raw}, nil
}

// MustParse is Parse but panics on error.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the canonical zero.
func (d Decimal) IsZero() bool {
	return d.raw == 0
}

// IsPositive reports whether d is strictly greater than zero.
func (d Decimal) IsPositive() bool {
	return d.sign > 0 && d.raw > 0
}

// IsNegative reports whether d is strictly less than zero.
func (d Decimal) IsNegative() bool {
	return d.sign < 0 && d.raw > 0
}

// Sign returns -1, 0, or +1.
func (d Decimal) Sign() int {
	if d.raw == 0 {
		return 0
	}
	return int(d.sign)
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	if d.raw == 0 {
		return Zero
	}
	return Decimal{sign: -d.sign, raw: d.raw}
}

// Abs returns |d|.
func (d Decimal) Abs() Decimal {
	return Decimal{sign: 1, raw: d.raw}
}

// Equal reports whether d == other, using canonical-zero comparison.
func (d Decimal) Equal(other Decimal) bool {
	return d.sign == other.sign && d.raw == other.raw
}

// Cmp returns -1, 0, or +1 as d is less than, equal to, or greater than
// other.
func (d Decimal) Cmp(other Decimal) int {
	if d.sign != other.sign {
		if d.sign < other.sign {
			return -1
		}
		return 1
	}
	switch {
	case d.raw < other.raw:
		if d.sign > 0 {
			return -1
		}
		return 1
	case d.raw > other.raw:
		if d.sign > 0 {
			return 1
		}
		return -1
	default:
		return 0
	}
}

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.Cmp(other) < 0 }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.Cmp(other) > 0 }

// LessOrEqual reports whether d <= other.
func (d Decimal) LessOrEqual(other Decimal) bool { return d.Cmp(other) <= 0 }

// GreaterOrEqual reports whether d >= other.
func (d Decimal) GreaterOrEqual(other Decimal) bool { return d.Cmp(other) >= 0 }

// Add returns d + other, exact.
func (d Decimal) Add(other Decimal) Decimal {
	if d.sign == other.sign {
		return Decimal{sign: d.sign, raw: d.raw + other.raw}
	}
	switch {
	case d.raw > other.raw:
		return Decimal{sign: d.sign, raw: d.raw - other.raw}
	case d.raw < other.raw:
		return Decimal{sign: other.sign, raw: other.raw - d.raw}
	default:
		return Zero
	}
}

// Sub returns d - other, exact.
func (d Decimal) Sub(other Decimal) Decimal {
	return d.Add(other.Neg())
}

// Mul returns d * other, truncating the extra six digits of precision.
// Panics on overflow.
func (d Decimal) Mul(other Decimal) Decimal {
	if d.raw == 0 || other.raw == 0 {
		return Zero
	}
	sign := d.sign * other.sign
	wide := (uint128{hi: 0, lo: d.raw}).mulU64(other.raw)
	if wide.hi >= Scale {
		panic("decimal: multiplication overflow")
	}
	raw := wide.divScale()
	return Decimal{sign: sign, raw: raw}
}

// Div returns d / other, truncating to six fractional digits. Division by
// zero panics — this is a programming error, not a recoverable condition.
func (d Decimal) Div(other Decimal) Decimal {
	if other.raw == 0 {
		panic("decimal: division by zero")
	}
	if d.raw == 0 {
		return Zero
	}
	sign := d.sign * other.sign
	wide := (uint128{hi: 0, lo: d.raw}).mulU64(Scale)
	raw := wide.divU64(other.raw)
	return Decimal{sign: sign, raw: raw}
}

// Max2 returns the greater of a and b.
func Max2(a, b Decimal) Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min2 returns the lesser of a and b.
func Min2(a, b Decimal) Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds all of vs together, starting from Zero.
func Sum(vs ...Decimal) Decimal {
	total := Zero
	for _, v := range vs {
		total = total.Add(v)
	}
	return total
}

// String renders d as "[-]I.FFFFFF".
func (d Decimal) String() string {
	sign := ""
	if d.sign < 0 && d.raw != 0 {
		sign = "-"
	}
	whole := d.raw / Scale
	frac := d.raw % Scale
	return fmt.Sprintf("%s%d.%0*d", sign, whole, Digits, frac)
}

// Float64 converts d to an approximate float64. Intended for logging and
// non-authoritative display only — never for further Decimal arithmetic.
func (d Decimal) Float64() float64 {
	v := float64(d.raw) / Scale
	if d.sign < 0 {
		v = -v
	}
	return v
}

// MarshalJSON renders d as a JSON string, matching how prices and sizes
// arrive over exchange wire protocols (quoted to preserve precision).
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON
// number.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
