package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/gridpool/gridpool/core/metrics"
)

// plainSink only implements MetricsSink, none of the optional recorders.
type plainSink struct {
	distributions int
	err           error
}

func (s *plainSink) RecordDistribution(coremetrics.DistributionRecord, []coremetrics.CommandRecord) error {
	s.distributions++
	return s.err
}

// fullSink implements every recorder interface.
type fullSink struct {
	plainSink
	proposals int
	gaps      int
}

func (s *fullSink) RecordProposal(coremetrics.ProposalEvent) error {
	s.proposals++
	return nil
}

func (s *fullSink) RecordResampleGap(coremetrics.ResampleGapEvent) error {
	s.gaps++
	return nil
}

func TestMultiSinkFanOut(t *testing.T) {
	plain := &plainSink{}
	full := &fullSink{}
	m := NewMultiSink(plain, full)

	if err := m.RecordDistribution(coremetrics.DistributionRecord{}, nil); err != nil {
		t.Fatal(err)
	}
	if plain.distributions != 1 || full.distributions != 1 {
		t.Errorf("distributions = %d, %d", plain.distributions, full.distributions)
	}

	// Optional interfaces only reach sinks that implement them.
	if err := m.RecordProposal(coremetrics.ProposalEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordResampleGap(coremetrics.ResampleGapEvent{}); err != nil {
		t.Fatal(err)
	}
	if full.proposals != 1 || full.gaps != 1 {
		t.Errorf("full sink = %+v", full)
	}
}

func TestMultiSinkPropagatesError(t *testing.T) {
	bad := &plainSink{err: errors.New("sink down")}
	m := NewMultiSink(bad)
	if err := m.RecordDistribution(coremetrics.DistributionRecord{}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildSinkNop(t *testing.T) {
	sink, err := BuildSink(coremetrics.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("got %T, want NopSink", sink)
	}
}
