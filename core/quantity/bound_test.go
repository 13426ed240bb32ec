package quantity

import "testing"

func TestNewBound(t *testing.T) {
	if _, err := NewBound(Watts(5), Watts(1)); err == nil {
		t.Error("expected error for inverted bound")
	}
	if _, err := NewBound(Watts(0), Amperes(1)); err == nil {
		t.Error("expected error for mixed units")
	}
	b, err := NewBound(Watts(-10), Watts(10))
	if err != nil {
		t.Fatalf("NewBound: %v", err)
	}
	if b.Unit() != Watt {
		t.Errorf("unit = %s", b.Unit())
	}
}

func TestBoundContains(t *testing.T) {
	b, _ := NewBound(Watts(-10), Watts(10))
	if !b.Contains(Watts(-10)) || !b.Contains(Watts(10)) || !b.Contains(Watts(0)) {
		t.Error("edges and interior must be contained")
	}
	if b.Contains(Watts(10.1)) || b.Contains(Amperes(0)) {
		t.Error("outside value or wrong unit must not be contained")
	}
}

func TestBoundClamp(t *testing.T) {
	b, _ := NewBound(Watts(-10), Watts(10))
	if got := b.Clamp(Watts(25)); got.Value != 10 {
		t.Errorf("clamp above = %v", got)
	}
	if got := b.Clamp(Watts(-25)); got.Value != -10 {
		t.Errorf("clamp below = %v", got)
	}
	if got := b.Clamp(Watts(3)); got.Value != 3 {
		t.Errorf("clamp inside = %v", got)
	}
	// Unit mismatch is left to the caller.
	if got := b.Clamp(Amperes(25)); got.Value != 25 {
		t.Errorf("clamp wrong unit = %v", got)
	}
}

func TestBoundIntersect(t *testing.T) {
	a, _ := NewBound(Watts(-10), Watts(10))
	b, _ := NewBound(Watts(-5), Watts(20))
	got := a.Intersect(b)
	if got.Lower.Value != -5 || got.Upper.Value != 10 {
		t.Errorf("intersect = [%v, %v]", got.Lower, got.Upper)
	}
	// Disjoint ranges collapse to a zero-width bound.
	c, _ := NewBound(Watts(15), Watts(20))
	got = a.Intersect(c)
	if got.Lower.Value != got.Upper.Value {
		t.Errorf("disjoint intersect not collapsed: [%v, %v]", got.Lower, got.Upper)
	}
}

func TestExclusionBandValidate(t *testing.T) {
	if err := (ExclusionBand{}).Validate(); err != nil {
		t.Errorf("empty band: %v", err)
	}
	band := ExclusionBand{Lower: Watts(2), Upper: Watts(5)}
	if err := band.Validate(); err == nil {
		t.Error("band not straddling zero must be rejected")
	}
	band = ExclusionBand{Lower: Watts(-2), Upper: Amperes(2)}
	if err := band.Validate(); err == nil {
		t.Error("mixed unit band must be rejected")
	}
	band = ExclusionBand{Lower: Watts(-2), Upper: Watts(2)}
	if err := band.Validate(); err != nil {
		t.Errorf("valid band: %v", err)
	}
}

func TestClampOutward(t *testing.T) {
	band := ExclusionBand{Lower: Watts(-4), Upper: Watts(6)}

	// Exact zero always passes through.
	if got := band.ClampOutward(Watts(0)); got.Value != 0 {
		t.Errorf("zero clamped to %v", got)
	}
	// Values outside or on the edges are untouched.
	for _, v := range []float64{-4, 6, -10, 10} {
		if got := band.ClampOutward(Watts(v)); got.Value != v {
			t.Errorf("ClampOutward(%g) = %v", v, got)
		}
	}
	// Inside values move to the nearer edge.
	if got := band.ClampOutward(Watts(-3)); got.Value != -4 {
		t.Errorf("ClampOutward(-3) = %v", got)
	}
	if got := band.ClampOutward(Watts(5)); got.Value != 6 {
		t.Errorf("ClampOutward(5) = %v", got)
	}
	// Equidistant resolves to the lower edge.
	if got := band.ClampOutward(Watts(1)); got.Value != -4 {
		t.Errorf("ClampOutward(1) = %v", got)
	}
	// Empty band never clamps.
	if got := (ExclusionBand{}).ClampOutward(Watts(1)); got.Value != 1 {
		t.Errorf("empty band clamped to %v", got)
	}
}
