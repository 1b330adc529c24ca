// Package units provides the physical units carried by gridded model output
// and conversions between them.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompatible is returned when converting between units of different
// physical dimensions.
var ErrIncompatible = errors.New("incompatible units")

// Dimension is the physical dimension of a unit.
type Dimension int

const (
	Dimensionless Dimension = iota
	Speed
	Pressure
	Length
	Temperature
	Time
	Angle
)

func (d Dimension) String() string {
	switch d {
	case Dimensionless:
		return "dimensionless"
	case Speed:
		return "[speed]"
	case Pressure:
		return "[pressure]"
	case Length:
		return "[length]"
	case Temperature:
		return "[temperature]"
	case Time:
		return "[time]"
	case Angle:
		return "[angle]"
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// Unit is a named unit. A value v in the unit corresponds to v*scale+offset in
// the base unit of its dimension.
type Unit struct {
	Name   string
	Symbol string
	Dim    Dimension

	scale  float64
	offset float64
}

var (
	One = Unit{Name: "dimensionless", Symbol: "", Dim: Dimensionless, scale: 1}

	MetersPerSecond   = Unit{Name: "meter / second", Symbol: "m/s", Dim: Speed, scale: 1}
	Knot              = Unit{Name: "knot", Symbol: "kt", Dim: Speed, scale: 1852.0 / 3600.0}
	KilometersPerHour = Unit{Name: "kilometer / hour", Symbol: "km/h", Dim: Speed, scale: 1 / 3.6}
	MilesPerHour      = Unit{Name: "mile / hour", Symbol: "mph", Dim: Speed, scale: 0.44704}

	Pascal      = Unit{Name: "pascal", Symbol: "Pa", Dim: Pressure, scale: 1}
	Hectopascal = Unit{Name: "hectopascal", Symbol: "hPa", Dim: Pressure, scale: 100}
	Millibar    = Unit{Name: "millibar", Symbol: "mbar", Dim: Pressure, scale: 100}

	Meter             = Unit{Name: "meter", Symbol: "m", Dim: Length, scale: 1}
	Kilometer         = Unit{Name: "kilometer", Symbol: "km", Dim: Length, scale: 1000}
	GeopotentialMeter = Unit{Name: "geopotential_meter", Symbol: "gpm", Dim: Length, scale: 1}

	Kelvin           = Unit{Name: "kelvin", Symbol: "K", Dim: Temperature, scale: 1}
	DegreeCelsius    = Unit{Name: "degree_Celsius", Symbol: "°C", Dim: Temperature, scale: 1, offset: 273.15}
	DegreeFahrenheit = Unit{Name: "degree_Fahrenheit", Symbol: "°F", Dim: Temperature, scale: 5.0 / 9.0, offset: 273.15 - 32*5.0/9.0}

	Second = Unit{Name: "second", Symbol: "s", Dim: Time, scale: 1}
	Minute = Unit{Name: "minute", Symbol: "min", Dim: Time, scale: 60}
	Hour   = Unit{Name: "hour", Symbol: "h", Dim: Time, scale: 3600}
	Day    = Unit{Name: "day", Symbol: "d", Dim: Time, scale: 86400}

	DegreesNorth = Unit{Name: "degrees_north", Symbol: "°N", Dim: Angle, scale: 1}
	DegreesEast  = Unit{Name: "degrees_east", Symbol: "°E", Dim: Angle, scale: 1}
	Degree       = Unit{Name: "degree", Symbol: "°", Dim: Angle, scale: 1}
)

// aliases maps the spellings found in CF metadata and user input to units.
// Keys are lower case with all whitespace removed.
var aliases = map[string]Unit{
	"":                   One,
	"1":                  One,
	"dimensionless":      One,
	"m/s":                MetersPerSecond,
	"ms-1":               MetersPerSecond,
	"ms^-1":              MetersPerSecond,
	"m.s-1":              MetersPerSecond,
	"meter/second":       MetersPerSecond,
	"meters/second":      MetersPerSecond,
	"meterspersecond":    MetersPerSecond,
	"knot":               Knot,
	"knots":              Knot,
	"kt":                 Knot,
	"kts":                Knot,
	"km/h":               KilometersPerHour,
	"kmh":                KilometersPerHour,
	"kmph":               KilometersPerHour,
	"kph":                KilometersPerHour,
	"kilometer/hour":     KilometersPerHour,
	"mph":                MilesPerHour,
	"mile/hour":          MilesPerHour,
	"pa":                 Pascal,
	"pascal":             Pascal,
	"pascals":            Pascal,
	"hpa":                Hectopascal,
	"hectopascal":        Hectopascal,
	"hectopascals":       Hectopascal,
	"mb":                 Millibar,
	"mbar":               Millibar,
	"millibar":           Millibar,
	"millibars":          Millibar,
	"m":                  Meter,
	"meter":              Meter,
	"meters":             Meter,
	"metre":              Meter,
	"km":                 Kilometer,
	"kilometer":          Kilometer,
	"gpm":                GeopotentialMeter,
	"gpmeter":            GeopotentialMeter,
	"geopotential_meter": GeopotentialMeter,
	"k":                  Kelvin,
	"kelvin":             Kelvin,
	"degc":               DegreeCelsius,
	"degree_celsius":     DegreeCelsius,
	"celsius":            DegreeCelsius,
	"°c":                 DegreeCelsius,
	"degf":               DegreeFahrenheit,
	"degree_fahrenheit":  DegreeFahrenheit,
	"°f":                 DegreeFahrenheit,
	"s":                  Second,
	"sec":                Second,
	"second":             Second,
	"seconds":            Second,
	"min":                Minute,
	"minute":             Minute,
	"minutes":            Minute,
	"h":                  Hour,
	"hr":                 Hour,
	"hour":               Hour,
	"hours":              Hour,
	"d":                  Day,
	"day":                Day,
	"days":               Day,
	"degrees_north":      DegreesNorth,
	"degree_north":       DegreesNorth,
	"degree_n":           DegreesNorth,
	"degrees_n":          DegreesNorth,
	"degreen":            DegreesNorth,
	"degrees_east":       DegreesEast,
	"degree_east":        DegreesEast,
	"degree_e":           DegreesEast,
	"degrees_e":          DegreesEast,
	"degreee":            DegreesEast,
	"degree":             Degree,
	"degrees":            Degree,
}

// Parse returns the unit named by s.
func Parse(s string) (Unit, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if u, ok := aliases[key]; ok {
		return u, nil
	}
	return Unit{}, fmt.Errorf("unknown unit %q", s)
}

// String returns the abbreviated symbol of the unit.
func (u Unit) String() string {
	return u.Symbol
}

// Compatible reports whether values in u can be converted to o.
func (u Unit) Compatible(o Unit) bool {
	return u.Dim == o.Dim
}

// Convert converts v from one unit to another.
func Convert(v float64, from, to Unit) (float64, error) {
	if !from.Compatible(to) {
		return 0, fmt.Errorf("cannot convert from %q (%s) to %q (%s): %w", from.Name, from.Dim, to.Name, to.Dim, ErrIncompatible)
	}
	if from == to {
		return v, nil
	}
	return (v*from.scale + from.offset - to.offset) / to.scale, nil
}

// ConvertSlice converts src into dst, which must have the same length. dst
// and src may be the same slice.
func ConvertSlice(dst, src []float64, from, to Unit) error {
	if len(dst) != len(src) {
		return fmt.Errorf("convert: length mismatch %d != %d", len(dst), len(src))
	}
	if !from.Compatible(to) {
		_, err := Convert(0, from, to)
		return err
	}
	scale := from.scale / to.scale
	shift := (from.offset - to.offset) / to.scale
	for i, v := range src {
		dst[i] = v*scale + shift
	}
	return nil
}
