package quantity

import (
	"fmt"
	"strings"
)

// Unit identifies the physical dimension of a Quantity.
type Unit int

const (
	// Watt measures active power.
	Watt Unit = iota
	// Ampere measures current.
	Ampere
	// Hertz measures frequency.
	Hertz
	// Volt measures voltage.
	Volt
)

// String returns the SI symbol for the unit.
func (u Unit) String() string {
	switch u {
	case Watt:
		return "W"
	case Ampere:
		return "A"
	case Hertz:
		return "Hz"
	case Volt:
		return "V"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit resolves a unit from its SI symbol or name. Matching is case
// insensitive.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "w", "watt", "watts":
		return Watt, nil
	case "a", "ampere", "amperes", "amp", "amps":
		return Ampere, nil
	case "hz", "hertz":
		return Hertz, nil
	case "v", "volt", "volts":
		return Volt, nil
	default:
		return Watt, fmt.Errorf("quantity: unknown unit %q", s)
	}
}

// Quantity is a signed scalar tagged with a physical unit. Arithmetic and
// comparisons are only defined between quantities of the same unit; mixing
// units returns ErrUnitMismatch.
type Quantity struct {
	Value float64
	Unit  Unit
}

// ErrUnitMismatch is returned when two quantities of different units are
// combined or compared.
var ErrUnitMismatch = fmt.Errorf("quantity: unit mismatch")

// Watts returns a power quantity.
func Watts(v float64) Quantity { return Quantity{Value: v, Unit: Watt} }

// Amperes returns a current quantity.
func Amperes(v float64) Quantity { return Quantity{Value: v, Unit: Ampere} }

// Hz returns a frequency quantity.
func Hz(v float64) Quantity { return Quantity{Value: v, Unit: Hertz} }

// Volts returns a voltage quantity.
func Volts(v float64) Quantity { return Quantity{Value: v, Unit: Volt} }

// Zero returns the distinguished zero value for the given unit. Zero is an
// exact state, not "close to zero": IsZero compares against it with ==.
func Zero(u Unit) Quantity { return Quantity{Value: 0, Unit: u} }

func (q Quantity) String() string {
	return fmt.Sprintf("%g%s", q.Value, q.Unit)
}

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool { return q.Value == 0 }

// Sign returns -1, 0 or 1 depending on the sign of the value.
func (q Quantity) Sign() int {
	switch {
	case q.Value < 0:
		return -1
	case q.Value > 0:
		return 1
	default:
		return 0
	}
}

// Add returns q + o.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if q.Unit != o.Unit {
		return Quantity{}, fmt.Errorf("%w: %s + %s", ErrUnitMismatch, q.Unit, o.Unit)
	}
	return Quantity{Value: q.Value + o.Value, Unit: q.Unit}, nil
}

// Sub returns q - o.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if q.Unit != o.Unit {
		return Quantity{}, fmt.Errorf("%w: %s - %s", ErrUnitMismatch, q.Unit, o.Unit)
	}
	return Quantity{Value: q.Value - o.Value, Unit: q.Unit}, nil
}

// Scale returns the quantity multiplied by a dimensionless factor.
func (q Quantity) Scale(f float64) Quantity {
	return Quantity{Value: q.Value * f, Unit: q.Unit}
}

// Less reports whether q < o.
func (q Quantity) Less(o Quantity) (bool, error) {
	if q.Unit != o.Unit {
		return false, fmt.Errorf("%w: %s < %s", ErrUnitMismatch, q.Unit, o.Unit)
	}
	return q.Value < o.Value, nil
}

// Equal reports whether q and o have the same unit and value.
func (q Quantity) Equal(o Quantity) bool {
	return q.Unit == o.Unit && q.Value == o.Value
}
