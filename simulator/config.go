package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the component simulator.
type Config struct {
	Broker           string
	TopicPrefix      string
	PoolID           string
	Count            int
	Lower            float64
	Upper            float64
	ExclusionLower   float64
	ExclusionUpper   float64
	AckLatency       time.Duration
	DropRate         float64
	NackRate         float64
	SnapshotInterval time.Duration
	Verbose          bool
}

// Validate checks flag combinations.
func (c Config) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if c.Lower > c.Upper {
		return fmt.Errorf("lower bound %g above upper %g", c.Lower, c.Upper)
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop-rate must be within [0, 1]")
	}
	if c.NackRate < 0 || c.NackRate > 1 {
		return fmt.Errorf("nack-rate must be within [0, 1]")
	}
	return nil
}
