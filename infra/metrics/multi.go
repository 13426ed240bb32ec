package metrics

import coremetrics "github.com/gridpool/gridpool/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDistribution forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordDistribution(rec coremetrics.DistributionRecord, cmds []coremetrics.CommandRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDistribution(rec, cmds); err != nil {
			return err
		}
	}
	return nil
}

// RecordProposal forwards proposal events to sinks that support them.
func (m *MultiSink) RecordProposal(ev coremetrics.ProposalEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ProposalRecorder); ok {
			if err := rec.RecordProposal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordResampleGap forwards gap events to sinks that support them.
func (m *MultiSink) RecordResampleGap(ev coremetrics.ResampleGapEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ResampleGapRecorder); ok {
			if err := rec.RecordResampleGap(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
