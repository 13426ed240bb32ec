package quantity

import "fmt"

// Bound is an inclusive feasible range for a component or pool.
type Bound struct {
	Lower Quantity `json:"lower"`
	Upper Quantity `json:"upper"`
}

// NewBound builds a bound from two same-unit quantities.
func NewBound(lower, upper Quantity) (Bound, error) {
	b := Bound{Lower: lower, Upper: upper}
	if err := b.Validate(); err != nil {
		return Bound{}, err
	}
	return b, nil
}

// Validate checks unit agreement and ordering.
func (b Bound) Validate() error {
	if b.Lower.Unit != b.Upper.Unit {
		return fmt.Errorf("%w: bound [%s, %s]", ErrUnitMismatch, b.Lower, b.Upper)
	}
	if b.Lower.Value > b.Upper.Value {
		return fmt.Errorf("bound lower %s above upper %s", b.Lower, b.Upper)
	}
	return nil
}

// Unit returns the unit shared by both edges.
func (b Bound) Unit() Unit { return b.Lower.Unit }

// Contains reports whether q lies within the inclusive range.
func (b Bound) Contains(q Quantity) bool {
	return q.Unit == b.Unit() && b.Lower.Value <= q.Value && q.Value <= b.Upper.Value
}

// Clamp restricts q to the inclusive range. Quantities of a different unit are
// returned unchanged; the caller is expected to have validated units already.
func (b Bound) Clamp(q Quantity) Quantity {
	if q.Unit != b.Unit() {
		return q
	}
	if q.Value < b.Lower.Value {
		return b.Lower
	}
	if q.Value > b.Upper.Value {
		return b.Upper
	}
	return q
}

// Intersect returns the overlap of the two bounds; the narrowest range wins.
// An empty overlap collapses to a zero-width bound at the nearest edge.
func (b Bound) Intersect(o Bound) Bound {
	res := b
	if o.Lower.Value > res.Lower.Value {
		res.Lower = o.Lower
	}
	if o.Upper.Value < res.Upper.Value {
		res.Upper = o.Upper
	}
	if res.Lower.Value > res.Upper.Value {
		res.Upper = res.Lower
	}
	return res
}

// ExclusionBand is an open sub-range around zero in which nonzero operation is
// forbidden. The exact zero value is always exempt.
type ExclusionBand struct {
	Lower Quantity `json:"lower"`
	Upper Quantity `json:"upper"`
}

// IsEmpty reports whether the band excludes nothing.
func (e ExclusionBand) IsEmpty() bool {
	return e.Lower.Value == 0 && e.Upper.Value == 0
}

// Validate checks unit agreement and that the band straddles or touches zero.
func (e ExclusionBand) Validate() error {
	if e.IsEmpty() {
		return nil
	}
	if e.Lower.Unit != e.Upper.Unit {
		return fmt.Errorf("%w: exclusion band [%s, %s]", ErrUnitMismatch, e.Lower, e.Upper)
	}
	if e.Lower.Value > 0 || e.Upper.Value < 0 {
		return fmt.Errorf("exclusion band [%s, %s] must straddle zero", e.Lower, e.Upper)
	}
	return nil
}

// ClampOutward pushes a nonzero value lying strictly inside the band to the
// nearer edge. Exact zero passes through untouched: zero is not a power flow
// and never needs to avoid the band.
func (e ExclusionBand) ClampOutward(q Quantity) Quantity {
	if e.IsEmpty() || q.IsZero() || q.Unit != e.Lower.Unit {
		return q
	}
	if q.Value <= e.Lower.Value || q.Value >= e.Upper.Value {
		return q
	}
	distLower := q.Value - e.Lower.Value
	distUpper := e.Upper.Value - q.Value
	if distLower <= distUpper {
		return e.Lower
	}
	return e.Upper
}
