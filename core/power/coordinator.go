package power

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	coremetrics "github.com/gridpool/gridpool/core/metrics"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/proposal"
)

// Coordinator drives the arbitrate-distribute cycle for every configured
// pool. Each pool has a single owner goroutine, so no two distribution
// attempts for the same pool ever run concurrently. A cycle runs on a fixed
// tick and additionally whenever a proposal for the pool is submitted or
// withdrawn; mutations arriving during a cycle coalesce into one follow-up
// cycle.
type Coordinator struct {
	store       *proposal.Store
	manager     *Manager
	distributor *Distributor
	tick        time.Duration
	log         logger.Logger
	sink        coremetrics.MetricsSink

	mu    sync.Mutex
	kicks map[string]chan struct{}
}

// NewCoordinator wires the store, arbiter and distributor together.
func NewCoordinator(store *proposal.Store, manager *Manager, distributor *Distributor, tick time.Duration, sink coremetrics.MetricsSink, log logger.Logger) (*Coordinator, error) {
	if store == nil || manager == nil || distributor == nil {
		return nil, errors.New("power: nil parameter provided to NewCoordinator")
	}
	if tick <= 0 {
		tick = time.Second
	}
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	c := &Coordinator{
		store:       store,
		manager:     manager,
		distributor: distributor,
		tick:        tick,
		log:         log,
		sink:        sink,
		kicks:       make(map[string]chan struct{}),
	}
	for _, id := range manager.PoolIDs() {
		c.kicks[id] = make(chan struct{}, 1)
	}
	return c, nil
}

// SubmitProposal validates and stores the proposal, acknowledging the actor
// synchronously. Unit mismatches are the only submission-time rejection;
// bound enforcement happens at arbitration. The owning pool is kicked so the
// next cycle picks the proposal up immediately.
func (c *Coordinator) SubmitProposal(p model.Proposal) error {
	if err := c.store.Submit(p); err != nil {
		return err
	}
	c.recordProposal(p, "submit")
	c.kick(p.PoolID)
	return nil
}

// WithdrawProposal removes the actor's proposal immediately. In-flight
// distributions are not cancelled; the next cycle simply no longer sees the
// proposal.
func (c *Coordinator) WithdrawProposal(actorID, poolID string) {
	c.store.Withdraw(actorID, poolID)
	c.recordProposal(model.Proposal{ActorID: actorID, PoolID: poolID}, "withdraw")
	c.kick(poolID)
}

// SubscribeResults streams distribution results for the pool.
func (c *Coordinator) SubscribeResults(poolID string) <-chan model.DistributionResult {
	return c.distributor.SubscribeResults(poolID)
}

// Run drives one arbitration loop per pool until the context is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range c.manager.PoolIDs() {
		wg.Add(1)
		go func(poolID string) {
			defer wg.Done()
			c.runPool(ctx, poolID)
		}(id)
	}
	c.watchTopology(ctx)
	wg.Wait()
}

func (c *Coordinator) runPool(ctx context.Context, poolID string) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	kick := c.kickChan(poolID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-kick:
		}
		c.cycle(poolID)
	}
}

// cycle runs one linearized arbitrate-distribute pass for the pool.
func (c *Coordinator) cycle(poolID string) {
	target, err := c.manager.Arbitrate(poolID, time.Now())
	if err != nil {
		c.log.Errorf("arbitration for pool %s failed: %v", poolID, err)
		return
	}
	result, err := c.distributor.Distribute(target)
	switch {
	case errors.Is(err, ErrPoolDegraded):
		// Expected steady state until the next topology refresh.
		c.log.Warnf("pool %s is degraded, skipping distribution", poolID)
		return
	case err != nil:
		c.log.Errorf("distribution for pool %s failed: %v", poolID, err)
	}
	c.recordDistribution(target, result)
}

// watchTopology clears the degraded flag of a pool whenever its topology
// refreshes.
func (c *Coordinator) watchTopology(ctx context.Context) {
	for _, id := range c.manager.PoolIDs() {
		go func(poolID string) {
			sub := c.distributor.topology.Subscribe(poolID)
			defer c.distributor.topology.Unsubscribe(poolID, sub)
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-sub:
					if !ok {
						return
					}
					c.distributor.ClearDegraded(poolID)
					c.kick(poolID)
				}
			}
		}(id)
	}
}

func (c *Coordinator) kick(poolID string) {
	ch := c.kickChan(poolID)
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (c *Coordinator) kickChan(poolID string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kicks[poolID]
}

func (c *Coordinator) recordProposal(p model.Proposal, action string) {
	rec, ok := c.sink.(coremetrics.ProposalRecorder)
	if !ok {
		return
	}
	ev := coremetrics.ProposalEvent{
		ActorID:  p.ActorID,
		PoolID:   p.PoolID,
		Value:    p.Value.Value,
		Unit:     p.Value.Unit.String(),
		Priority: p.Priority,
		Action:   action,
		Time:     time.Now(),
	}
	if err := rec.RecordProposal(ev); err != nil {
		c.log.Errorf("proposal metrics error: %v", err)
	}
}

func (c *Coordinator) recordDistribution(target model.Target, result model.DistributionResult) {
	cmds := make([]coremetrics.CommandRecord, 0, len(result.Assignments))
	for id, value := range result.Assignments {
		_, acked := result.Succeeded[id]
		rec := coremetrics.CommandRecord{
			PoolID:       result.PoolID,
			ComponentID:  id,
			Value:        value.Value,
			Unit:         value.Unit.String(),
			Acknowledged: acked,
			Time:         result.Timestamp,
		}
		if err, ok := result.Errors[id]; ok && err != nil {
			rec.Error = err.Error()
		}
		cmds = append(cmds, rec)
	}
	summary := coremetrics.DistributionRecord{
		PoolID:    result.PoolID,
		Requested: result.Requested.Value,
		Achieved:  result.Achieved.Value,
		Unit:      result.Requested.Unit.String(),
		Succeeded: len(result.Succeeded),
		Failed:    len(result.Failed),
		Priority:  target.WinningPriority,
		Proposals: target.ProposalCount,
		Time:      result.Timestamp,
	}
	if err := c.sink.RecordDistribution(summary, cmds); err != nil {
		c.log.Errorf("distribution metrics error: %v", err)
	}
}
