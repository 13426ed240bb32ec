package power

import (
	"fmt"
	"math"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/proposal"
	"github.com/gridpool/gridpool/core/quantity"
)

// Manager reduces the live proposals of a pool to a single target value. It
// is a pure function of the store contents, the pool configuration and the
// arbitration instant; calling Arbitrate twice with unchanged state yields an
// identical target.
type Manager struct {
	store *proposal.Store
	pools map[string]PoolConfig
	log   logger.Logger
}

// NewManager creates an arbiter over the given store and pool set.
func NewManager(store *proposal.Store, pools []PoolConfig, log logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("power: nil store provided to NewManager")
	}
	if log == nil {
		log = logger.Nop{}
	}
	m := &Manager{store: store, pools: make(map[string]PoolConfig, len(pools)), log: log}
	for _, p := range pools {
		p.SetDefaults()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		m.pools[p.ID] = p
	}
	return m, nil
}

// Pool returns the configuration of the given pool.
func (m *Manager) Pool(poolID string) (PoolConfig, bool) {
	p, ok := m.pools[poolID]
	return p, ok
}

// PoolIDs returns all configured pool ids.
func (m *Manager) PoolIDs() []string {
	ids := make([]string, 0, len(m.pools))
	for id := range m.pools {
		ids = append(ids, id)
	}
	return ids
}

// Arbitrate computes the target for the pool at the given instant.
//
// The live proposals are partitioned by priority and only the highest present
// priority participates. Their values are combined by the pool's reducer,
// clamped into the effective bound (pool bound intersected with the narrowest
// override among the winning proposals) and finally pushed out of the pool's
// exclusion band. An exact zero target bypasses the exclusion clamp entirely.
// No live proposals yield a zero target, which is not an error.
func (m *Manager) Arbitrate(poolID string, now time.Time) (model.Target, error) {
	pool, ok := m.pools[poolID]
	if !ok {
		return model.Target{}, fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
	}

	live := m.store.Live(poolID, now)
	liveProposals.WithLabelValues(poolID).Set(float64(len(live)))
	if len(live) == 0 {
		return model.Target{PoolID: poolID, Value: quantity.Zero(pool.Unit)}, nil
	}

	winning := live[0].Priority
	for _, p := range live[1:] {
		if p.Priority > winning {
			winning = p.Priority
		}
	}
	var winners []model.Proposal
	for _, p := range live {
		if p.Priority == winning {
			winners = append(winners, p)
		}
	}

	combined := combine(pool, winners)

	effective := pool.Bounds
	for _, p := range winners {
		if p.BoundsOverride != nil {
			effective = effective.Intersect(*p.BoundsOverride)
		}
	}

	value := effective.Clamp(combined)
	value = pool.Exclusion.ClampOutward(value)

	m.log.Debugw("arbitrated pool target", map[string]any{
		"pool":      poolID,
		"proposals": len(winners),
		"priority":  winning,
		"combined":  combined.String(),
		"target":    value.String(),
	})

	return model.Target{
		PoolID:          poolID,
		Value:           value,
		WinningPriority: winning,
		ProposalCount:   len(winners),
	}, nil
}

// combine merges the winning proposals according to the pool's reducer.
// Proposals arrive ordered by creation time, so "last" is the final element.
// "max" keeps the value with the greatest magnitude, preserving its sign, so
// that safety-limit pools honour the strongest request in either direction.
func combine(pool PoolConfig, winners []model.Proposal) quantity.Quantity {
	switch pool.Reducer {
	case ReducerMax:
		best := winners[0].Value
		for _, p := range winners[1:] {
			if math.Abs(p.Value.Value) > math.Abs(best.Value) {
				best = p.Value
			}
		}
		return best
	case ReducerLast:
		return winners[len(winners)-1].Value
	default: // ReducerSum
		total := quantity.Zero(pool.Unit)
		for _, p := range winners {
			total.Value += p.Value.Value
		}
		return total
	}
}
