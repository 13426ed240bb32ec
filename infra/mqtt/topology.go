package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/infra/logger"
	"github.com/gridpool/gridpool/internal/eventbus"
)

// PahoTopologyProvider implements transport.TopologyProvider from retained
// MQTT snapshots. The topology service publishes the full component set of a
// pool as a retained JSON array on <prefix>/pools/<pool>/components; every
// snapshot replaces the previous one and is fanned out to subscribers.
type PahoTopologyProvider struct {
	cli    paho.Client
	prefix string
	unit   quantity.Unit
	log    logger.Logger

	mu    sync.RWMutex
	pools map[string][]model.Component
	buses map[string]*eventbus.Bus[[]model.Component]
}

// componentMsg is the wire shape of one component in a topology snapshot.
type componentMsg struct {
	ID             string  `json:"id"`
	Category       string  `json:"category"`
	Lower          float64 `json:"lower"`
	Upper          float64 `json:"upper"`
	ExclusionLower float64 `json:"exclusion_lower"`
	ExclusionUpper float64 `json:"exclusion_upper"`
	Available      bool    `json:"available"`
	BoundsKnown    bool    `json:"bounds_known"`
}

// NewPahoTopologyProvider connects to the broker and subscribes to the pool
// snapshot topics.
func NewPahoTopologyProvider(cfg Config, unit quantity.Unit) (*PahoTopologyProvider, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	p := &PahoTopologyProvider{
		prefix: cfg.TopicPrefix,
		unit:   unit,
		log:    logger.New("mqtt_topology"),
		pools:  make(map[string][]model.Component),
		buses:  make(map[string]*eventbus.Bus[[]model.Component]),
	}
	opts.OnConnect = func(c paho.Client) {
		topic := fmt.Sprintf("%s/pools/+/components", p.prefix)
		if token := c.Subscribe(topic, 1, p.onSnapshot); token.Wait() && token.Error() != nil {
			p.log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		p.log.Errorf("connection lost: %v", err)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = cli
	return p, nil
}

func (p *PahoTopologyProvider) onSnapshot(_ paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 4 {
		p.log.Errorf("unexpected topology topic %s", msg.Topic())
		return
	}
	poolID := parts[len(parts)-2]

	var msgs []componentMsg
	if err := json.Unmarshal(msg.Payload(), &msgs); err != nil {
		p.log.Errorf("invalid topology snapshot for pool %s: %v", poolID, err)
		return
	}

	comps := make([]model.Component, 0, len(msgs))
	for _, m := range msgs {
		category, err := model.ParseCategory(m.Category)
		if err != nil {
			p.log.Warnf("pool %s component %s: %v, defaulting to battery", poolID, m.ID, err)
			category = model.CategoryBattery
		}
		c := model.Component{
			ID:       m.ID,
			Category: category,
			Bounds: quantity.Bound{
				Lower: quantity.Quantity{Value: m.Lower, Unit: p.unit},
				Upper: quantity.Quantity{Value: m.Upper, Unit: p.unit},
			},
			Exclusion: quantity.ExclusionBand{
				Lower: quantity.Quantity{Value: m.ExclusionLower, Unit: p.unit},
				Upper: quantity.Quantity{Value: m.ExclusionUpper, Unit: p.unit},
			},
			Available:   m.Available,
			BoundsKnown: m.BoundsKnown,
		}
		if err := c.Validate(); err != nil {
			p.log.Errorf("pool %s: dropping invalid component: %v", poolID, err)
			continue
		}
		comps = append(comps, c)
	}

	p.mu.Lock()
	p.pools[poolID] = comps
	bus := p.buses[poolID]
	p.mu.Unlock()
	p.log.Infof("topology snapshot for pool %s: %d components", poolID, len(comps))
	if bus != nil {
		bus.Publish(comps)
	}
}

// Components returns the latest snapshot for the pool.
func (p *PahoTopologyProvider) Components(poolID string) ([]model.Component, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	comps, ok := p.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("topology: no snapshot received yet for pool %s", poolID)
	}
	return append([]model.Component(nil), comps...), nil
}

// Subscribe streams snapshots for the pool.
func (p *PahoTopologyProvider) Subscribe(poolID string) <-chan []model.Component {
	return p.bus(poolID).Subscribe()
}

// Unsubscribe releases a subscription obtained from Subscribe.
func (p *PahoTopologyProvider) Unsubscribe(poolID string, sub <-chan []model.Component) {
	p.bus(poolID).Unsubscribe(sub)
}

func (p *PahoTopologyProvider) bus(poolID string) *eventbus.Bus[[]model.Component] {
	p.mu.Lock()
	defer p.mu.Unlock()
	bus, ok := p.buses[poolID]
	if !ok {
		bus = eventbus.New[[]model.Component]()
		p.buses[poolID] = bus
	}
	return bus
}

// Close disconnects from the broker and shuts down all streams.
func (p *PahoTopologyProvider) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bus := range p.buses {
		bus.Close()
	}
	p.buses = make(map[string]*eventbus.Bus[[]model.Component])
	return nil
}
