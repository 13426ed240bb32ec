package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/gridpool/gridpool/core/metrics"
)

// PromSink records distribution outcomes in Prometheus metrics.
type PromSink struct {
	commands  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	achieved  *prometheus.GaugeVec
	proposals *prometheus.CounterVec
	gaps      *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "power_commands_total",
		Help: "Total number of setpoint commands sent to components",
	}, []string{"pool", "component_id", "acknowledged"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "power_command_latency_seconds",
		Help:    "Time between command send and acknowledgment",
		Buckets: prometheus.DefBuckets,
	}, []string{"pool", "acknowledged"})
	achieved := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "power_distribution_achieved",
		Help: "Power achieved by the last distribution, in the pool unit",
	}, []string{"pool"})
	proposals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "power_proposal_events_total",
		Help: "Proposal submissions and withdrawals",
	}, []string{"pool", "action"})
	gaps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resampling_gaps_total",
		Help: "Output gaps emitted by the resampler",
	}, []string{"series"})

	if err := reg.Register(commands); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			commands = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(achieved); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			achieved = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(proposals); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			proposals = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(gaps); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			gaps = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		commands:  commands,
		latency:   latency,
		achieved:  achieved,
		proposals: proposals,
		gaps:      gaps,
	}, nil
}

// RecordDistribution updates command counters, latency histograms and the
// achieved gauge for a distribution attempt.
func (s *PromSink) RecordDistribution(rec coremetrics.DistributionRecord, cmds []coremetrics.CommandRecord) error {
	s.achieved.WithLabelValues(rec.PoolID).Set(rec.Achieved)
	for _, c := range cmds {
		ack := strconv.FormatBool(c.Acknowledged)
		s.commands.WithLabelValues(c.PoolID, c.ComponentID, ack).Inc()
		s.latency.WithLabelValues(c.PoolID, ack).Observe(c.Latency.Seconds())
	}
	return nil
}

// RecordProposal counts proposal lifecycle events.
func (s *PromSink) RecordProposal(ev coremetrics.ProposalEvent) error {
	s.proposals.WithLabelValues(ev.PoolID, ev.Action).Inc()
	return nil
}

// RecordResampleGap counts resampling output gaps.
func (s *PromSink) RecordResampleGap(ev coremetrics.ResampleGapEvent) error {
	s.gaps.WithLabelValues(ev.SeriesID).Inc()
	return nil
}
