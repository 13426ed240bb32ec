package transport

import "github.com/gridpool/gridpool/core/model"

// TopologyProvider exposes the component topology owned by the external
// discovery service. The component table is read-mostly and may change
// between arbitration and distribution; callers must re-read availability at
// distribution time.
type TopologyProvider interface {
	// Components returns the current component set of the pool.
	Components(poolID string) ([]model.Component, error)

	// Subscribe streams full component-set snapshots for the pool. The
	// returned channel is closed when the provider shuts down.
	Subscribe(poolID string) <-chan []model.Component

	// Unsubscribe releases a subscription obtained from Subscribe.
	Unsubscribe(poolID string, sub <-chan []model.Component)

	Close() error
}
