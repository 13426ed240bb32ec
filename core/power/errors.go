package power

import "errors"

var (
	// ErrUnknownPool is returned for pool ids absent from the configuration.
	ErrUnknownPool = errors.New("power: unknown pool")

	// ErrTotalFailure indicates no component of the pool could be reached.
	// This is the only distribution outcome surfaced as a hard error; partial
	// failures are reported inside the DistributionResult instead.
	ErrTotalFailure = errors.New("power: total distribution failure")

	// ErrStaleTopology marks a component whose rated bounds are unknown. The
	// component is excluded from distribution and counted as failed.
	ErrStaleTopology = errors.New("power: stale topology, component bounds unknown")

	// ErrNoHeadroom marks a component that received no command because it had
	// no remaining capacity in the requested direction.
	ErrNoHeadroom = errors.New("power: no headroom in requested direction")

	// ErrPoolDegraded is returned by Distribute while the pool is marked
	// degraded after a total distribution failure. The flag clears on the
	// next topology refresh.
	ErrPoolDegraded = errors.New("power: pool degraded")
)
