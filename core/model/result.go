package model

import (
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// DistributionResult reports the outcome of one distribution attempt for a
// pool. It is immutable once returned; partial failure is expressed here
// rather than as an error.
type DistributionResult struct {
	PoolID    string
	Requested quantity.Quantity
	Achieved  quantity.Quantity

	// Assignments holds the value commanded to each targeted component,
	// including the ones that later failed.
	Assignments map[string]quantity.Quantity

	Succeeded map[string]struct{}
	Failed    map[string]struct{}

	// Errors maps failed component ids to the transport or capacity error
	// that caused the failure.
	Errors map[string]error

	Timestamp time.Time
}

// FullyAchieved reports whether the achieved value matches the request.
func (r DistributionResult) FullyAchieved() bool {
	return r.Achieved.Equal(r.Requested)
}
