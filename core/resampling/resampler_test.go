package resampling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

func newTestResampler(t *testing.T, period time.Duration) *Resampler {
	t.Helper()
	r, err := New(Config{Period: period}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("zero period must be rejected")
	}
	if _, err := New(Config{Period: time.Second, Aggregation: "median"}, nil, nil); err == nil {
		t.Fatal("unknown aggregation must be rejected")
	}
}

func TestAddSeriesDuplicate(t *testing.T) {
	r := newTestResampler(t, time.Second)
	src := make(chan model.Sample)
	defer close(src)
	if err := r.AddSeries("a", src); err != nil {
		t.Fatalf("AddSeries: %v", err)
	}
	if err := r.AddSeries("a", src); err == nil {
		t.Fatal("duplicate series must be rejected")
	}
}

func TestSubscribeUnknownSeries(t *testing.T) {
	r := newTestResampler(t, time.Second)
	if _, err := r.Subscribe("ghost"); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("got %v", err)
	}
	if err := r.Err("ghost"); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("Err: got %v", err)
	}
}

func TestRemoveSeries(t *testing.T) {
	r := newTestResampler(t, time.Second)
	src := make(chan model.Sample)
	defer close(src)
	_ = r.AddSeries("a", src)
	sub, err := r.Subscribe("a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !r.RemoveSeries("a") {
		t.Fatal("RemoveSeries returned false")
	}
	if _, ok := <-sub; ok {
		t.Fatal("output stream must be closed")
	}
	if r.RemoveSeries("a") {
		t.Fatal("removing twice must return false")
	}
}

// TestRunEmitsValueThenGap exercises the full loop at a short period: one
// window carries the pushed value, a silent window yields a gap sample.
func TestRunEmitsValueThenGap(t *testing.T) {
	r := newTestResampler(t, 50*time.Millisecond)
	src := make(chan model.Sample, 1)
	if err := r.AddSeries("a", src); err != nil {
		t.Fatalf("AddSeries: %v", err)
	}
	sub, err := r.Subscribe("a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	src <- model.NewSample(time.Now(), quantity.Watts(7))

	var got model.Sample
	select {
	case got = <-sub:
	case <-time.After(time.Second):
		t.Fatal("no output sample")
	}
	if !got.HasValue() || got.Value.Value != 7 {
		t.Fatalf("first output = %v", got)
	}

	// The lookback keeps the sample relevant for MaxDataAgeInPeriods windows;
	// after that a silent source produces gaps.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-sub:
			if !s.HasValue() {
				return
			}
		case <-deadline:
			t.Fatal("never saw a gap sample")
		}
	}
}

// TestSourceStopEmitsTerminalGap verifies a closed input produces one final
// gap sample, a terminal error and a closed output stream.
func TestSourceStopEmitsTerminalGap(t *testing.T) {
	r := newTestResampler(t, 20*time.Millisecond)
	src := make(chan model.Sample)
	if err := r.AddSeries("a", src); err != nil {
		t.Fatalf("AddSeries: %v", err)
	}
	sub, err := r.Subscribe("a")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	close(src)

	// Drain until the stream closes; the last emitted sample is the terminal
	// gap.
	deadline := time.After(2 * time.Second)
	var last model.Sample
	sawAny := false
	for {
		select {
		case s, ok := <-sub:
			if !ok {
				if !sawAny {
					t.Fatal("stream closed without any sample")
				}
				if last.HasValue() {
					t.Fatal("terminal sample must be a gap")
				}
				if _, err := r.Subscribe("a"); !errors.Is(err, ErrUnknownSeries) {
					t.Fatalf("series must be released, got %v", err)
				}
				return
			}
			last = s
			sawAny = true
		case <-deadline:
			t.Fatal("stream never closed after source stop")
		}
	}
}
