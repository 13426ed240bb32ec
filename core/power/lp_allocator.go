package power

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// LPAllocator solves a linear program to split the target across components,
// maximizing headroom-weighted utilization subject to per-component caps and
// the target equality. It falls back to the proportional allocator when the
// program is infeasible or the solver fails.
type LPAllocator struct {
	Fallback ProportionalAllocator
}

// ErrInfeasible indicates the LP had no feasible solution meeting the target.
var ErrInfeasible = errors.New("lp infeasible")

// lpSolve points to the function used to solve the LP. It can be overridden
// in tests to simulate solver failures.
var lpSolve = solveLP

// solveLP runs the simplex algorithm to maximise headroom-weighted shares
// subject to capacity constraints and the target sum.
func solveLP(caps []float64, target float64) ([]float64, error) {
	c := make([]float64, len(caps))
	for i, cap := range caps {
		c[i] = -cap
	}

	g := mat.NewDense(len(caps), len(caps), nil)
	h := make([]float64, len(caps))
	for i, cap := range caps {
		g.Set(i, i, 1)
		h[i] = cap
	}

	A := mat.NewDense(1, len(caps), nil)
	for i := range caps {
		A.Set(0, i, 1)
	}
	b := []float64{target}

	cStd, AStd, bStd := lp.Convert(c, g, h, A, b)
	_, sol, err := lp.Simplex(cStd, AStd, bStd, 1e-7, nil)
	return sol, err
}

// AllocateStrict solves the LP and returns ErrInfeasible if the target cannot
// be met exactly. No fallback is applied.
func (a LPAllocator) AllocateStrict(caps []float64, target float64) ([]float64, error) {
	shares := make([]float64, len(caps))
	if len(caps) == 0 || target <= 0 {
		return shares, nil
	}

	sol, err := lpSolve(caps, target)
	if err != nil {
		return nil, err
	}

	var sum float64
	for i := range caps {
		share := sol[i]
		if share < 0 {
			share = 0
		}
		if share > caps[i] {
			share = caps[i]
		}
		shares[i] = share
		sum += share
	}
	if math.Abs(sum-target) > 1e-3 {
		return shares, ErrInfeasible
	}
	return shares, nil
}

// Allocate implements the Allocator interface, falling back to the
// proportional strategy when the LP cannot meet the target.
func (a LPAllocator) Allocate(caps []float64, target float64) []float64 {
	shares, err := a.AllocateStrict(caps, target)
	if err != nil {
		return a.Fallback.Allocate(caps, target)
	}
	return shares
}
