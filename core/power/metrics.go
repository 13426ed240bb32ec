package power

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	distributionLatency *prometheus.HistogramVec
	commandsSent        *prometheus.CounterVec
	commandFailures     *prometheus.CounterVec
	achievedRatio       *prometheus.GaugeVec
	liveProposals       *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.GaugeVec, *prometheus.GaugeVec) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distribution_latency_seconds",
			Help:    "Latency of component commands from publish to acknowledgment",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pool"},
	)
	sent := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "component_commands_total",
			Help: "Number of commands sent to components",
		},
		[]string{"pool"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "component_command_failures_total",
			Help: "Number of component commands that failed or were not acknowledged",
		},
		[]string{"pool"},
	)
	ratio := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "distribution_achieved_ratio",
			Help: "Achieved power over requested power for the last distribution",
		},
		[]string{"pool"},
	)
	props := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "live_proposals",
			Help: "Number of unexpired proposals seen at the last arbitration",
		},
		[]string{"pool"},
	)
	return lat, sent, fail, ratio, props
}

func init() {
	distributionLatency, commandsSent, commandFailures, achievedRatio, liveProposals = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers power metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(distributionLatency, commandsSent, commandFailures, achievedRatio, liveProposals)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	distributionLatency, commandsSent, commandFailures, achievedRatio, liveProposals = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
