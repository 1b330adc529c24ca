package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Quantity is a scalar value with a unit, e.g. the isobaric level 300 hPa.
type Quantity struct {
	Value float64
	Unit  Unit
}

// Q returns the quantity v u.
func Q(v float64, u Unit) Quantity {
	return Quantity{Value: v, Unit: u}
}

// ParseQuantity parses strings such as "300 hPa" or "500hPa".
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && strings.ContainsRune("+-.0123456789eE", rune(s[i])) {
		i++
	}
	// A trailing exponent marker belongs to the unit (e.g. "5e" is not a number).
	for i > 0 {
		if _, err := strconv.ParseFloat(s[:i], 64); err == nil {
			break
		}
		i--
	}
	if i == 0 {
		return Quantity{}, fmt.Errorf("parse quantity %q: missing value", s)
	}
	v, _ := strconv.ParseFloat(s[:i], 64)
	u, err := Parse(s[i:])
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Q(v, u), nil
}

// To converts q to the unit u.
func (q Quantity) To(u Unit) (Quantity, error) {
	v, err := Convert(q.Value, q.Unit, u)
	if err != nil {
		return Quantity{}, err
	}
	return Q(v, u), nil
}

// String formats q in abbreviated form, e.g. "300 hPa".
func (q Quantity) String() string {
	v := strconv.FormatFloat(q.Value, 'g', -1, 64)
	if q.Unit.Symbol == "" {
		return v
	}
	return v + " " + q.Unit.Symbol
}
