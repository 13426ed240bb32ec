package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate, NackRate: cfg.NackRate}
	comps := GenerateFleet(cfg, strat)

	snapCli, err := newMQTTClient(cfg.Broker, "sim-topology")
	if err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	defer snapCli.Disconnect(250)
	if err := PublishSnapshot(snapCli, cfg, comps); err != nil {
		log.Fatalf("publish snapshot: %v", err)
	}
	go func() {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := PublishSnapshot(snapCli, cfg, comps); err != nil {
					log.Printf("publish snapshot: %v", err)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for _, c := range comps {
		wg.Add(1)
		go func(c *SimulatedComponent) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				log.Printf("%s: %v", c.ID, err)
			}
		}(c)
	}
	wg.Wait()
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "gridpool", "MQTT topic prefix")
	flag.StringVar(&cfg.PoolID, "pool", "main", "pool id for topology snapshots")
	flag.IntVar(&cfg.Count, "count", 1, "number of components")
	flag.Float64Var(&cfg.Lower, "lower", -10000, "component lower bound")
	flag.Float64Var(&cfg.Upper, "upper", 10000, "component upper bound")
	flag.Float64Var(&cfg.ExclusionLower, "exclusion-lower", 0, "exclusion band lower edge")
	flag.Float64Var(&cfg.ExclusionUpper, "exclusion-upper", 0, "exclusion band upper edge")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.Float64Var(&cfg.NackRate, "nack-rate", 0, "negative ack rate")
	flag.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", 30*time.Second, "topology snapshot interval")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}
