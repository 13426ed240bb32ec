package metrics

import (
	"time"
)

// CommandRecord represents one command sent to a component during a
// distribution attempt.
type CommandRecord struct {
	PoolID       string
	ComponentID  string
	Value        float64
	Unit         string
	Acknowledged bool
	Latency      time.Duration
	Error        string
	Time         time.Time
}

// DistributionRecord summarizes one distribution attempt for a pool.
type DistributionRecord struct {
	PoolID    string
	Requested float64
	Achieved  float64
	Unit      string
	Succeeded int
	Failed    int
	Priority  int
	Proposals int
	Time      time.Time
}

// MetricsSink records distribution outcomes for observability purposes.
type MetricsSink interface {
	RecordDistribution(rec DistributionRecord, cmds []CommandRecord) error
}

// ProposalEvent captures a proposal submission or withdrawal.
type ProposalEvent struct {
	ActorID  string
	PoolID   string
	Value    float64
	Unit     string
	Priority int
	Action   string
	Time     time.Time
}

// ProposalRecorder records proposal lifecycle events. Sinks may implement it
// in addition to MetricsSink.
type ProposalRecorder interface {
	RecordProposal(ev ProposalEvent) error
}

// ResampleGapEvent captures an output gap emitted by the resampler.
type ResampleGapEvent struct {
	SeriesID string
	Time     time.Time
}

// ResampleGapRecorder records resampling gaps.
type ResampleGapRecorder interface {
	RecordResampleGap(ev ResampleGapEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDistribution(DistributionRecord, []CommandRecord) error { return nil }
func (NopSink) RecordProposal(ProposalEvent) error                           { return nil }
func (NopSink) RecordResampleGap(ResampleGapEvent) error                     { return nil }
