package model

import (
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// Proposal is a time-stamped request from one control actor for a desired
// power value on a pool. A new proposal from the same (actor, pool) replaces
// the previous one; proposals expire silently after the store's expiry window.
type Proposal struct {
	ActorID   string
	PoolID    string
	Value     quantity.Quantity
	Priority  int
	CreatedAt time.Time

	// BoundsOverride narrows the pool bound for the arbitration cycles this
	// proposal participates in. Nil means no override.
	BoundsOverride *quantity.Bound
}

// Expired reports whether the proposal is older than the given window at now.
func (p Proposal) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(p.CreatedAt) >= window
}

// Target is the single value the arbiter computes for a pool. It is ephemeral
// and recomputed on every arbitration cycle.
type Target struct {
	PoolID string
	Value  quantity.Quantity

	// WinningPriority is the highest priority present among the live
	// proposals that produced this target. Zero when no proposals were live.
	WinningPriority int

	// ProposalCount is how many live proposals participated.
	ProposalCount int
}
