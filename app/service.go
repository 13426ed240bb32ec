package app

import (
	"context"
	"fmt"

	"github.com/gridpool/gridpool/config"
	"github.com/gridpool/gridpool/core/power"
	"github.com/gridpool/gridpool/core/proposal"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/core/resampling"
	"github.com/gridpool/gridpool/core/transport"
	"github.com/gridpool/gridpool/infra/logger"
	"github.com/gridpool/gridpool/infra/metrics"
	"github.com/gridpool/gridpool/infra/mqtt"
	"github.com/gridpool/gridpool/infra/telemetry"
)

// Service wires the proposal store, arbiter and distributor behind the MQTT
// transport and runs the coordination loop.
type Service struct {
	Coordinator *power.Coordinator
	Store       *proposal.Store
	Resampler   *resampling.Resampler

	cfg       *config.Config
	client    *mqtt.PahoClient
	topology  transport.TopologyProvider
	telemetry *telemetry.Manager
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Pretty); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	sink, err := metrics.BuildSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	poolUnits := make(map[string]quantity.Unit, len(cfg.Power.Pools))
	for _, p := range cfg.Power.Pools {
		poolUnits[p.ID] = p.Unit
	}
	store := proposal.NewStore(cfg.Power.Expiry(), poolUnits, logger.New("proposal_store"))

	manager, err := power.NewManager(store, cfg.Power.Pools, logger.New("power_manager"))
	if err != nil {
		return nil, fmt.Errorf("power manager: %w", err)
	}

	// All pools of a deployment share one broker, so one topology subscriber
	// serves them all. Mixed-unit deployments use per-unit snapshot topics.
	topoUnit := quantity.Watt
	if len(cfg.Power.Pools) > 0 {
		topoUnit = cfg.Power.Pools[0].Unit
	}
	topology, err := mqtt.NewPahoTopologyProvider(cfg.MQTT, topoUnit)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}

	distributor, err := power.NewDistributor(topology, client, cfg.Power.AckTimeout(), logger.New("power_distributor"))
	if err != nil {
		return nil, fmt.Errorf("power distributor: %w", err)
	}
	for _, p := range cfg.Power.Pools {
		if p.Allocator == power.AllocatorLP {
			distributor.SetAllocator(p.ID, power.LPAllocator{})
		}
	}

	coordinator, err := power.NewCoordinator(store, manager, distributor, cfg.Power.Tick(), sink, logg)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	resampler, err := resampling.New(cfg.Resampling, sink, logger.New("resampling"))
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	tel, err := telemetry.NewManager(cfg.MQTT, cfg.Telemetry, resampler)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	return &Service{
		Coordinator: coordinator,
		Store:       store,
		Resampler:   resampler,
		cfg:         cfg,
		client:      client,
		topology:    topology,
		telemetry:   tel,
		log:         logg,
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.Store.StartSweeper(ctx, s.cfg.Power.Expiry())
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.Resampler.Run(ctx)
	go s.telemetry.Start(ctx)
	s.log.Infof("coordinating %d pools", len(s.cfg.Power.Pools))
	s.Coordinator.Run(ctx)
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	return s.topology.Close()
}
