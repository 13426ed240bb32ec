package power

import (
	"fmt"
	"math"
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// Reducer names the rule used to combine proposals that share the winning
// priority. The combination rule is deliberately per-pool configuration: sum
// suits cooperating control strategies, max suits safety-limit proposals,
// last suits single-owner pools with occasional manual overrides.
type Reducer string

const (
	ReducerSum  Reducer = "sum"
	ReducerMax  Reducer = "max"
	ReducerLast Reducer = "last"
)

// AllocatorKind selects the distribution strategy for a pool.
type AllocatorKind string

const (
	AllocatorProportional AllocatorKind = "proportional"
	AllocatorLP           AllocatorKind = "lp"
)

// BoundSpec is the wire form of a bound or exclusion band, expressed in the
// pool unit.
type BoundSpec struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PoolConfig describes one arbitrated pool of components.
type PoolConfig struct {
	ID            string        `json:"id"`
	UnitName      string        `json:"unit"`
	BoundsSpec    BoundSpec     `json:"bounds"`
	ExclusionSpec BoundSpec     `json:"exclusion"`
	Reducer       Reducer       `json:"reducer"`
	Allocator     AllocatorKind `json:"allocator"`

	// Normalized from UnitName and the specs.
	Unit      quantity.Unit          `json:"-"`
	Bounds    quantity.Bound         `json:"-"`
	Exclusion quantity.ExclusionBand `json:"-"`
}

// SetDefaults fills unset fields with their defaults.
func (c *PoolConfig) SetDefaults() {
	if c.Reducer == "" {
		c.Reducer = ReducerSum
	}
	if c.Allocator == "" {
		c.Allocator = AllocatorProportional
	}
	if c.UnitName == "" {
		c.UnitName = "W"
	}
}

// Normalize parses the unit name and stamps the unit onto the bound and
// exclusion quantities.
func (c *PoolConfig) Normalize() error {
	unit, err := quantity.ParseUnit(c.UnitName)
	if err != nil {
		return fmt.Errorf("pool %s: %w", c.ID, err)
	}
	c.Unit = unit
	lower, upper := c.BoundsSpec.Lower, c.BoundsSpec.Upper
	if lower == 0 && upper == 0 {
		// No pool-level limit configured.
		lower, upper = math.Inf(-1), math.Inf(1)
	}
	c.Bounds = quantity.Bound{
		Lower: quantity.Quantity{Value: lower, Unit: unit},
		Upper: quantity.Quantity{Value: upper, Unit: unit},
	}
	c.Exclusion = quantity.ExclusionBand{
		Lower: quantity.Quantity{Value: c.ExclusionSpec.Lower, Unit: unit},
		Upper: quantity.Quantity{Value: c.ExclusionSpec.Upper, Unit: unit},
	}
	return nil
}

// Validate checks the pool configuration.
func (c PoolConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("pool id must not be empty")
	}
	switch c.Reducer {
	case ReducerSum, ReducerMax, ReducerLast:
	default:
		return fmt.Errorf("pool %s: unknown reducer %q", c.ID, c.Reducer)
	}
	switch c.Allocator {
	case AllocatorProportional, AllocatorLP:
	default:
		return fmt.Errorf("pool %s: unknown allocator %q", c.ID, c.Allocator)
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("pool %s: %w", c.ID, err)
	}
	if err := c.Exclusion.Validate(); err != nil {
		return fmt.Errorf("pool %s: %w", c.ID, err)
	}
	// The band edges must be reachable setpoints: arbitration clamps into the
	// bounds first and pushes out of the band second, so an edge outside the
	// bounds would let the outward clamp escape them.
	if !c.Exclusion.IsEmpty() {
		if !c.Bounds.Contains(c.Exclusion.Lower) || !c.Bounds.Contains(c.Exclusion.Upper) {
			return fmt.Errorf("pool %s: exclusion band [%s, %s] exceeds bounds [%s, %s]",
				c.ID, c.Exclusion.Lower, c.Exclusion.Upper, c.Bounds.Lower, c.Bounds.Upper)
		}
	}
	return nil
}

// Config defines power coordination settings.
type Config struct {
	Pools             []PoolConfig `json:"pools"`
	TickSeconds       int          `json:"tick_seconds"`
	AckTimeoutSeconds int          `json:"ack_timeout_seconds"`
	ExpirySeconds     int          `json:"expiry_seconds"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.TickSeconds <= 0 {
		c.TickSeconds = 1
	}
	if c.AckTimeoutSeconds <= 0 {
		c.AckTimeoutSeconds = 5
	}
	if c.ExpirySeconds <= 0 {
		c.ExpirySeconds = 60
	}
	for i := range c.Pools {
		c.Pools[i].SetDefaults()
	}
}

// Normalize parses unit names and stamps units on all pools. Must run before
// Validate.
func (c *Config) Normalize() error {
	for i := range c.Pools {
		if err := c.Pools[i].Normalize(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks all pool configurations.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Pools))
	for _, p := range c.Pools {
		if seen[p.ID] {
			return fmt.Errorf("duplicate pool id %q", p.ID)
		}
		seen[p.ID] = true
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Tick returns the arbitration tick as a duration.
func (c Config) Tick() time.Duration { return time.Duration(c.TickSeconds) * time.Second }

// AckTimeout returns the command acknowledgment timeout as a duration.
func (c Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSeconds) * time.Second
}

// Expiry returns the proposal expiry window as a duration.
func (c Config) Expiry() time.Duration { return time.Duration(c.ExpirySeconds) * time.Second }
