package topology

import (
	"fmt"
	"sync"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/internal/eventbus"
)

// StaticProvider is an in-memory TopologyProvider fed from configuration or
// tests. SetComponents replaces a pool's component set and notifies
// subscribers, which is how availability and bound changes propagate between
// arbitration and distribution.
type StaticProvider struct {
	mu    sync.RWMutex
	pools map[string][]model.Component
	buses map[string]*eventbus.Bus[[]model.Component]
}

// NewStaticProvider creates a provider with the given initial pools.
func NewStaticProvider(pools map[string][]model.Component) *StaticProvider {
	p := &StaticProvider{
		pools: make(map[string][]model.Component, len(pools)),
		buses: make(map[string]*eventbus.Bus[[]model.Component]),
	}
	for id, comps := range pools {
		p.pools[id] = append([]model.Component(nil), comps...)
	}
	return p
}

// Components returns the current component set of the pool.
func (p *StaticProvider) Components(poolID string) ([]model.Component, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	comps, ok := p.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("topology: unknown pool %s", poolID)
	}
	return append([]model.Component(nil), comps...), nil
}

// SetComponents replaces the component set of a pool and notifies
// subscribers.
func (p *StaticProvider) SetComponents(poolID string, comps []model.Component) {
	copied := append([]model.Component(nil), comps...)
	p.mu.Lock()
	p.pools[poolID] = copied
	bus := p.buses[poolID]
	p.mu.Unlock()
	if bus != nil {
		bus.Publish(copied)
	}
}

// Subscribe streams component-set snapshots for the pool.
func (p *StaticProvider) Subscribe(poolID string) <-chan []model.Component {
	return p.bus(poolID).Subscribe()
}

// Unsubscribe releases a subscription obtained from Subscribe.
func (p *StaticProvider) Unsubscribe(poolID string, sub <-chan []model.Component) {
	p.bus(poolID).Unsubscribe(sub)
}

func (p *StaticProvider) bus(poolID string) *eventbus.Bus[[]model.Component] {
	p.mu.Lock()
	defer p.mu.Unlock()
	bus, ok := p.buses[poolID]
	if !ok {
		bus = eventbus.New[[]model.Component]()
		p.buses[poolID] = bus
	}
	return bus
}

// Close shuts down all subscription streams.
func (p *StaticProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bus := range p.buses {
		bus.Close()
	}
	p.buses = make(map[string]*eventbus.Bus[[]model.Component])
	return nil
}
