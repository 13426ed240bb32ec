package proposal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

// DefaultExpiryWindow is how long a proposal stays live without renewal.
const DefaultExpiryWindow = 60 * time.Second

// ErrInvalidUnit is returned when a proposal's value or bounds override does
// not match the unit configured for the pool.
var ErrInvalidUnit = fmt.Errorf("proposal: invalid unit")

type key struct {
	actorID string
	poolID  string
}

// Store is a de-duplicated, auto-expiring holding area for proposals. A new
// proposal from the same (actor, pool) replaces the previous one. Expired
// proposals are purged lazily on read; a dead actor's last proposal is
// forgotten automatically and never blocks arbitration.
type Store struct {
	mu        sync.RWMutex
	proposals map[key]model.Proposal
	units     map[string]quantity.Unit
	expiry    time.Duration
	log       logger.Logger
}

// NewStore creates a store with the given expiry window. A non-positive
// window falls back to DefaultExpiryWindow. poolUnits maps pool ids to the
// unit proposals for that pool must carry; pools absent from the map accept
// any unit.
func NewStore(expiry time.Duration, poolUnits map[string]quantity.Unit, log logger.Logger) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiryWindow
	}
	if log == nil {
		log = logger.Nop{}
	}
	units := make(map[string]quantity.Unit, len(poolUnits))
	for k, v := range poolUnits {
		units[k] = v
	}
	return &Store{
		proposals: make(map[key]model.Proposal),
		units:     units,
		expiry:    expiry,
		log:       log,
	}
}

// ExpiryWindow returns the configured expiry window.
func (s *Store) ExpiryWindow() time.Duration { return s.expiry }

// Submit inserts or replaces the proposal for its (actor, pool) key. The only
// validation performed here is the unit check; bound enforcement belongs to
// the arbiter.
func (s *Store) Submit(p model.Proposal) error {
	if p.ActorID == "" || p.PoolID == "" {
		return fmt.Errorf("proposal: actor and pool ids must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if unit, ok := s.units[p.PoolID]; ok {
		if p.Value.Unit != unit {
			return fmt.Errorf("%w: pool %s expects %s, got %s", ErrInvalidUnit, p.PoolID, unit, p.Value.Unit)
		}
		if p.BoundsOverride != nil && p.BoundsOverride.Unit() != unit {
			return fmt.Errorf("%w: bounds override for pool %s expects %s, got %s",
				ErrInvalidUnit, p.PoolID, unit, p.BoundsOverride.Unit())
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.proposals[key{actorID: p.ActorID, poolID: p.PoolID}] = p
	return nil
}

// Withdraw removes the actor's proposal for the pool immediately. Removing a
// proposal that does not exist is not an error.
func (s *Store) Withdraw(actorID, poolID string) {
	s.mu.Lock()
	delete(s.proposals, key{actorID: actorID, poolID: poolID})
	s.mu.Unlock()
}

// Live returns the unexpired proposals for the pool at the given instant,
// ordered by creation time, purging any expired ones it encounters. Expiry is
// silent: logged at debug level, never surfaced as an error.
func (s *Store) Live(poolID string, now time.Time) []model.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []model.Proposal
	for k, p := range s.proposals {
		if k.poolID != poolID {
			continue
		}
		if p.Expired(now, s.expiry) {
			s.log.Debugf("proposal from actor %s for pool %s expired, dropping", p.ActorID, p.PoolID)
			delete(s.proposals, k)
			continue
		}
		live = append(live, p)
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ActorID < live[j].ActorID
		}
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	return live
}

// Len returns the number of stored proposals, including ones that may have
// expired but were not purged yet.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proposals)
}

// StartSweeper runs a background purge loop for memory hygiene. The lazy
// purge in Live already guarantees correctness; the sweeper only bounds how
// long dead entries linger for pools nobody arbitrates anymore.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.expiry
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.proposals {
		if p.Expired(now, s.expiry) {
			s.log.Debugf("proposal from actor %s for pool %s expired, dropping", p.ActorID, p.PoolID)
			delete(s.proposals, k)
		}
	}
}
