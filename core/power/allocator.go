package power

import (
	"gonum.org/v1/gonum/floats"
)

// Allocator splits a positive target across components. caps[i] is the
// headroom of component i in the requested direction; the returned shares
// satisfy 0 <= share[i] <= caps[i]. The sum of shares may fall short of the
// target when the aggregate headroom is insufficient.
type Allocator interface {
	Allocate(caps []float64, target float64) []float64
}

// ProportionalAllocator assigns each component a share of the remaining
// target proportional to its headroom, in rounds, so that components capped
// early free their surplus for the rest. With headroom-proportional shares a
// single round is exact, but rounds keep the allocation tight when callers
// pre-clamp capacities.
type ProportionalAllocator struct {
	// MaxRounds bounds the reallocation loop. Zero means the default of 10.
	MaxRounds int
}

func (a ProportionalAllocator) Allocate(caps []float64, target float64) []float64 {
	shares := make([]float64, len(caps))
	if len(caps) == 0 || target <= 0 {
		return shares
	}

	remaining := target
	active := make([]int, 0, len(caps))
	room := make([]float64, len(caps))
	for i, c := range caps {
		if c > 0 {
			active = append(active, i)
			room[i] = c
		}
	}

	maxRounds := a.MaxRounds
	if maxRounds == 0 {
		maxRounds = 10
	}

	for round := 0; round < maxRounds && remaining > 0 && len(active) > 0; round++ {
		var weight float64
		for _, i := range active {
			weight += room[i]
		}
		if weight <= 0 {
			break
		}
		var consumed float64
		next := active[:0]
		for _, i := range active {
			share := remaining * (room[i] / weight)
			if share >= room[i] {
				shares[i] += room[i]
				consumed += room[i]
				room[i] = 0
			} else {
				shares[i] += share
				room[i] -= share
				consumed += share
				next = append(next, i)
			}
		}
		active = next
		remaining -= consumed
		if consumed == 0 {
			break
		}
	}

	// Guard against float drift pushing the total past the target.
	if total := floats.Sum(shares); total > target {
		scale := target / total
		floats.Scale(scale, shares)
	}
	return shares
}
