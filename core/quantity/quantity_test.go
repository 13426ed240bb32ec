package quantity

import (
	"errors"
	"testing"
)

func TestParseUnit(t *testing.T) {
	cases := map[string]Unit{
		"W":     Watt,
		"watt":  Watt,
		"Watts": Watt,
		"a":     Ampere,
		"Amps":  Ampere,
		"hz":    Hertz,
		"Hertz": Hertz,
		"V":     Volt,
		"volts": Volt,
	}
	for in, want := range cases {
		got, err := ParseUnit(in)
		if err != nil {
			t.Errorf("ParseUnit(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseUnit(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseUnit("parsec"); err == nil {
		t.Error("expected error for unknown unit")
	}
}

func TestUnitString(t *testing.T) {
	if Watt.String() != "W" || Ampere.String() != "A" || Hertz.String() != "Hz" || Volt.String() != "V" {
		t.Error("unexpected unit symbols")
	}
}

func TestArithmeticRejectsMixedUnits(t *testing.T) {
	if _, err := Watts(1).Add(Amperes(1)); !errors.Is(err, ErrUnitMismatch) {
		t.Errorf("Add: expected ErrUnitMismatch, got %v", err)
	}
	if _, err := Watts(1).Sub(Hz(1)); !errors.Is(err, ErrUnitMismatch) {
		t.Errorf("Sub: expected ErrUnitMismatch, got %v", err)
	}
	if _, err := Watts(1).Less(Volts(1)); !errors.Is(err, ErrUnitMismatch) {
		t.Errorf("Less: expected ErrUnitMismatch, got %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	sum, err := Watts(3).Add(Watts(4))
	if err != nil || sum.Value != 7 {
		t.Fatalf("Add = %v, %v", sum, err)
	}
	diff, err := Watts(3).Sub(Watts(4))
	if err != nil || diff.Value != -1 {
		t.Fatalf("Sub = %v, %v", diff, err)
	}
	if s := Watts(3).Scale(2); s.Value != 6 || s.Unit != Watt {
		t.Fatalf("Scale = %v", s)
	}
	less, err := Watts(3).Less(Watts(4))
	if err != nil || !less {
		t.Fatalf("Less = %v, %v", less, err)
	}
}

func TestSignAndZero(t *testing.T) {
	if Watts(-2).Sign() != -1 || Watts(2).Sign() != 1 || Watts(0).Sign() != 0 {
		t.Error("unexpected signs")
	}
	if !Zero(Ampere).IsZero() {
		t.Error("Zero must be zero")
	}
	if Zero(Ampere).Unit != Ampere {
		t.Error("Zero must keep the unit")
	}
	if Watts(0.0001).IsZero() {
		t.Error("near zero is not zero")
	}
}

func TestEqual(t *testing.T) {
	if !Watts(5).Equal(Watts(5)) {
		t.Error("same unit and value must be equal")
	}
	if Watts(5).Equal(Amperes(5)) {
		t.Error("different units are never equal")
	}
}
