// Package numeric implements the lenient number parsing used for amounts and
// percentages typed into registration forms: the longest leading numeric
// prefix is used and anything unparseable becomes zero.
package numeric

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numberPrefix matches the leading decimal literal of a string, with an
// optional sign, fraction and exponent.
var numberPrefix = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?`)

// Accepted magnitudes. A decimal's exponent is checked before anything
// compares or renders it, so "1e50000000" is rejected without expanding it.
const (
	maxExponent   = 64
	limitExponent = 21
)

var limit = decimal.New(1, limitExponent)

// InRange reports whether v is small enough to store and render: its absolute
// value is below 1e21 and it carries at most 64 fraction digits.
func InRange(v decimal.Decimal) bool {
	if e := v.Exponent(); e > maxExponent || e < -maxExponent {
		return false
	}
	return v.Abs().LessThan(limit)
}

// Parse returns the value of the numeric prefix of text, or zero when there
// is none or it is out of range. "12abc" parses as 12, "25,000" as 25 and
// "abc" as 0.
func Parse(text string) decimal.Decimal {
	s := strings.TrimLeft(text, " \t\n\r\v\f\u00a0\ufeff")
	m := numberPrefix.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	sign, intPart, fracPart, exp := m[1], m[2], m[3], m[4]
	if intPart == "" && fracPart == "" {
		return decimal.Zero
	}
	if intPart == "" {
		intPart = "0"
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(intPart)
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	if exp != "" {
		b.WriteByte('e')
		b.WriteString(exp)
	}

	v, err := decimal.NewFromString(b.String())
	if err != nil || !InRange(v) {
		return decimal.Zero
	}
	if v.IsZero() {
		return decimal.Zero
	}
	return v
}

// Lenient is a decimal that unmarshals from JSON numbers or strings using
// Parse. null, booleans, objects and unparseable strings become zero.
type Lenient struct {
	decimal.Decimal
}

// L wraps d as a Lenient.
func L(d decimal.Decimal) Lenient {
	return Lenient{Decimal: d}
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lenient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	l.Decimal = decimal.Zero
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		l.Decimal = Parse(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		l.Decimal = Parse(string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lenient) MarshalJSON() ([]byte, error) {
	return l.Decimal.MarshalJSON()
}
