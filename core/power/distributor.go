package power

import (
	"fmt"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/core/transport"
	"github.com/gridpool/gridpool/internal/eventbus"
)

// Distributor realizes a pool target against the pool's components. It issues
// one command per targeted component, records per-component failures in the
// result instead of retrying, and only escalates when no component at all
// could be reached.
type Distributor struct {
	topology   transport.TopologyProvider
	sender     transport.CommandSender
	ackTimeout time.Duration
	log        logger.Logger

	mu         sync.Mutex
	allocators map[string]Allocator
	exclusions map[string]struct{} // pools currently marked degraded
	results    map[string]*eventbus.Bus[model.DistributionResult]
}

// NewDistributor creates a distributor over the given transport collaborators.
// ackTimeout bounds the wait for per-command acknowledgments; zero selects a
// default of five seconds.
func NewDistributor(topology transport.TopologyProvider, sender transport.CommandSender, ackTimeout time.Duration, log logger.Logger) (*Distributor, error) {
	if topology == nil || sender == nil {
		return nil, fmt.Errorf("power: nil parameter provided to NewDistributor")
	}
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Distributor{
		topology:   topology,
		sender:     sender,
		ackTimeout: ackTimeout,
		log:        log,
		allocators: make(map[string]Allocator),
		exclusions: make(map[string]struct{}),
		results:    make(map[string]*eventbus.Bus[model.DistributionResult]),
	}, nil
}

// SetAllocator configures the allocation strategy for a pool. The default is
// the proportional allocator.
func (d *Distributor) SetAllocator(poolID string, alloc Allocator) {
	d.mu.Lock()
	d.allocators[poolID] = alloc
	d.mu.Unlock()
}

func (d *Distributor) allocator(poolID string) Allocator {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.allocators[poolID]; ok {
		return a
	}
	return ProportionalAllocator{}
}

// SubscribeResults streams distribution results for the pool.
func (d *Distributor) SubscribeResults(poolID string) <-chan model.DistributionResult {
	return d.resultBus(poolID).Subscribe()
}

// UnsubscribeResults releases a subscription obtained from SubscribeResults.
func (d *Distributor) UnsubscribeResults(poolID string, sub <-chan model.DistributionResult) {
	d.resultBus(poolID).Unsubscribe(sub)
}

func (d *Distributor) resultBus(poolID string) *eventbus.Bus[model.DistributionResult] {
	d.mu.Lock()
	defer d.mu.Unlock()
	bus, ok := d.results[poolID]
	if !ok {
		bus = eventbus.New[model.DistributionResult]()
		d.results[poolID] = bus
	}
	return bus
}

// Degraded reports whether the pool is marked degraded after a total
// distribution failure.
func (d *Distributor) Degraded(poolID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.exclusions[poolID]
	return ok
}

// ClearDegraded clears the degraded flag for the pool. The coordinator calls
// this on every topology refresh.
func (d *Distributor) ClearDegraded(poolID string) {
	d.mu.Lock()
	delete(d.exclusions, poolID)
	d.mu.Unlock()
}

func (d *Distributor) markDegraded(poolID string) {
	d.mu.Lock()
	d.exclusions[poolID] = struct{}{}
	d.mu.Unlock()
}

// Close shuts down all result streams.
func (d *Distributor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bus := range d.results {
		bus.Close()
	}
	d.results = make(map[string]*eventbus.Bus[model.DistributionResult])
	return nil
}

// Distribute splits the target across the pool's components and executes it.
// Availability is re-read here, not reused from arbitration time: the
// topology may have changed in between. A result is always produced, even on
// partial failure; the returned error is non-nil only when the topology was
// unreachable or no component could be commanded at all. A pool still marked
// degraded from an earlier total failure refuses distribution with
// ErrPoolDegraded until a topology refresh clears the flag.
func (d *Distributor) Distribute(target model.Target) (model.DistributionResult, error) {
	start := time.Now()
	res := model.DistributionResult{
		PoolID:      target.PoolID,
		Requested:   target.Value,
		Achieved:    quantity.Zero(target.Value.Unit),
		Assignments: make(map[string]quantity.Quantity),
		Succeeded:   make(map[string]struct{}),
		Failed:      make(map[string]struct{}),
		Errors:      make(map[string]error),
		Timestamp:   start,
	}

	if d.Degraded(target.PoolID) {
		return res, fmt.Errorf("%w: %s", ErrPoolDegraded, target.PoolID)
	}

	components, err := d.topology.Components(target.PoolID)
	if err != nil {
		d.markDegraded(target.PoolID)
		return res, fmt.Errorf("%w: %s: %v", ErrTotalFailure, target.PoolID, err)
	}

	var available []model.Component
	for _, c := range components {
		if !c.Available {
			continue
		}
		if !c.BoundsKnown {
			// Bounds unknown: exclude from distribution, count as failed.
			res.Failed[c.ID] = struct{}{}
			res.Errors[c.ID] = ErrStaleTopology
			continue
		}
		available = append(available, c)
	}

	if target.Value.IsZero() {
		d.distributeZero(&res, available)
	} else {
		d.distributeNonZero(&res, available, target)
	}

	d.finish(&res, start)

	if len(res.Succeeded) == 0 && len(available) > 0 {
		d.markDegraded(target.PoolID)
		return res, fmt.Errorf("%w: pool %s, %d components failed", ErrTotalFailure, target.PoolID, len(res.Failed))
	}
	if len(available) == 0 && !target.Value.IsZero() {
		d.markDegraded(target.PoolID)
		return res, fmt.Errorf("%w: pool %s has no available components", ErrTotalFailure, target.PoolID)
	}
	return res, nil
}

// distributeZero sends an exact zero to every available component. The
// per-component exclusion bands are bypassed on purpose: zero is not a power
// flow and is always a legal setpoint.
func (d *Distributor) distributeZero(res *model.DistributionResult, components []model.Component) {
	for _, c := range components {
		res.Assignments[c.ID] = quantity.Zero(res.Requested.Unit)
	}
	d.execute(res)
}

func (d *Distributor) distributeNonZero(res *model.DistributionResult, components []model.Component, target model.Target) {
	direction := target.Value.Sign()
	magnitude := target.Value.Value
	if magnitude < 0 {
		magnitude = -magnitude
	}

	caps := make([]float64, 0, len(components))
	targeted := make([]model.Component, 0, len(components))
	for _, c := range components {
		room := c.Headroom(quantity.Zero(res.Requested.Unit), direction).Value
		if room <= 0 {
			// No capacity toward the requested direction: nothing to command.
			res.Failed[c.ID] = struct{}{}
			res.Errors[c.ID] = ErrNoHeadroom
			continue
		}
		caps = append(caps, room)
		targeted = append(targeted, c)
	}

	shares := d.allocator(target.PoolID).Allocate(caps, magnitude)
	for i, c := range targeted {
		if shares[i] <= 0 {
			res.Failed[c.ID] = struct{}{}
			res.Errors[c.ID] = ErrNoHeadroom
			continue
		}
		value := quantity.Quantity{Value: float64(direction) * shares[i], Unit: res.Requested.Unit}
		value = c.Exclusion.ClampOutward(value)
		value = c.Bounds.Clamp(value)
		res.Assignments[c.ID] = value
	}

	d.execute(res)
}

// execute publishes the assignments concurrently and records per-component
// outcomes. Failures are never retried here.
func (d *Distributor) execute(res *model.DistributionResult) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for id, value := range res.Assignments {
		wg.Add(1)
		go func(id string, value quantity.Quantity) {
			defer wg.Done()
			sendStart := time.Now()
			ack, err := d.sendAndWait(id, value)
			elapsed := time.Since(sendStart)

			mu.Lock()
			defer mu.Unlock()
			commandsSent.WithLabelValues(res.PoolID).Inc()
			distributionLatency.WithLabelValues(res.PoolID).Observe(elapsed.Seconds())
			if err != nil || !ack {
				if err == nil {
					err = fmt.Errorf("component %s rejected command", id)
				}
				commandFailures.WithLabelValues(res.PoolID).Inc()
				res.Failed[id] = struct{}{}
				res.Errors[id] = err
				d.log.Warnf("command to component %s failed: %v", id, err)
				return
			}
			res.Succeeded[id] = struct{}{}
			res.Achieved.Value += value.Value
		}(id, value)
	}
	wg.Wait()
}

func (d *Distributor) sendAndWait(id string, value quantity.Quantity) (bool, error) {
	cmdID, err := d.sender.SendCommand(id, value)
	if err != nil {
		return false, err
	}
	return d.sender.WaitForAck(cmdID, d.ackTimeout)
}

func (d *Distributor) finish(res *model.DistributionResult, start time.Time) {
	if res.Requested.Value != 0 {
		achievedRatio.WithLabelValues(res.PoolID).Set(res.Achieved.Value / res.Requested.Value)
	} else if len(res.Succeeded) > 0 {
		achievedRatio.WithLabelValues(res.PoolID).Set(1)
	}
	d.log.Debugw("distribution finished", map[string]any{
		"pool":      res.PoolID,
		"requested": res.Requested.String(),
		"achieved":  res.Achieved.String(),
		"succeeded": len(res.Succeeded),
		"failed":    len(res.Failed),
		"elapsed":   time.Since(start).String(),
	})
	d.resultBus(res.PoolID).Publish(*res)
}
