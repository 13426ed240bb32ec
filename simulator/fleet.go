package main

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// componentSnapshot is the wire shape of one component in a pool topology
// snapshot.
type componentSnapshot struct {
	ID             string  `json:"id"`
	Category       string  `json:"category"`
	Lower          float64 `json:"lower"`
	Upper          float64 `json:"upper"`
	ExclusionLower float64 `json:"exclusion_lower"`
	ExclusionUpper float64 `json:"exclusion_upper"`
	Available      bool    `json:"available"`
	BoundsKnown    bool    `json:"bounds_known"`
}

// GenerateFleet creates cfg.Count components with IDs comp0001..compNNNN,
// all sharing the configured bounds and exclusion band.
func GenerateFleet(cfg Config, strat AckStrategy) []*SimulatedComponent {
	if cfg.Count <= 0 {
		return nil
	}
	comps := make([]*SimulatedComponent, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		id := fmt.Sprintf("comp%04d", i+1)
		c := NewSimulatedComponent(id, cfg.Broker, cfg.TopicPrefix, strat)
		c.Lower = cfg.Lower
		c.Upper = cfg.Upper
		comps[i] = c
	}
	return comps
}

// SnapshotPayload builds the retained topology snapshot for the fleet.
func SnapshotPayload(cfg Config, comps []*SimulatedComponent) ([]byte, error) {
	msgs := make([]componentSnapshot, len(comps))
	for i, c := range comps {
		msgs[i] = componentSnapshot{
			ID:             c.ID,
			Category:       "battery",
			Lower:          c.Lower,
			Upper:          c.Upper,
			ExclusionLower: cfg.ExclusionLower,
			ExclusionUpper: cfg.ExclusionUpper,
			Available:      true,
			BoundsKnown:    true,
		}
	}
	return json.Marshal(msgs)
}

// PublishSnapshot publishes the retained topology snapshot for the pool.
func PublishSnapshot(cli paho.Client, cfg Config, comps []*SimulatedComponent) error {
	payload, err := SnapshotPayload(cfg, comps)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/pools/%s/components", cfg.TopicPrefix, cfg.PoolID)
	if token := cli.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
