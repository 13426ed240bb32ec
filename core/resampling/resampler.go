package resampling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	coremetrics "github.com/gridpool/gridpool/core/metrics"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/internal/eventbus"
)

// ErrSourceStopped reports that an input series was closed. The resampler
// emits a terminal gap sample for the series, closes its output streams and
// releases the window state.
var ErrSourceStopped = errors.New("resampling: source stopped producing samples")

// ErrUnknownSeries is returned for series ids the resampler is not tracking.
var ErrUnknownSeries = errors.New("resampling: unknown series")

type series struct {
	buffer  *seriesBuffer
	out     *eventbus.Bus[model.Sample]
	stopped bool
	err     error
}

// Resampler normalizes irregular telemetry series into samples emitted at a
// fixed cadence. Input streams may deliver samples with small timestamp
// jitter and may be silent for whole periods; output streams always tick once
// per period, with gaps expressed as nil-valued samples rather than missing
// ones. Output streams are not restartable: a new subscriber starts at the
// next boundary.
type Resampler struct {
	config Config
	agg    AggregateFunc
	log    logger.Logger
	sink   coremetrics.MetricsSink

	mu     sync.Mutex
	series map[string]*series

	// windowEnd is the precise end of the current window. Timers never fire
	// exactly on time, so boundaries are tracked explicitly to keep every
	// window the same size.
	windowEnd time.Time
}

// New creates a resampler from the given configuration.
func New(cfg Config, sink coremetrics.MetricsSink, log logger.Logger) (*Resampler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	agg, err := aggregationByName(cfg.Aggregation)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Resampler{
		config:    cfg,
		agg:       agg,
		log:       log,
		sink:      sink,
		series:    make(map[string]*series),
		windowEnd: time.Now().Add(cfg.Period),
	}, nil
}

// AddSeries starts resampling a new input series. The returned error is
// non-nil when the id is already tracked. Samples are consumed from source
// until it is closed.
func (r *Resampler) AddSeries(id string, source <-chan model.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[id]; ok {
		return fmt.Errorf("resampling: series %s already tracked", id)
	}
	s := &series{
		buffer: newSeriesBuffer(id, r.config, r.agg, r.log),
		out:    eventbus.New[model.Sample](),
	}
	r.series[id] = s
	go r.receive(id, s, source)
	return nil
}

// RemoveSeries stops resampling the series and closes its output streams.
func (r *Resampler) RemoveSeries(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[id]
	if !ok {
		return false
	}
	s.out.Close()
	delete(r.series, id)
	return true
}

// Subscribe returns a stream of resampled output for the series, starting at
// the next period boundary.
func (r *Resampler) Subscribe(id string) (<-chan model.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, id)
	}
	return s.out.Subscribe(), nil
}

// Unsubscribe releases a stream obtained from Subscribe.
func (r *Resampler) Unsubscribe(id string, sub <-chan model.Sample) {
	r.mu.Lock()
	s, ok := r.series[id]
	r.mu.Unlock()
	if ok {
		s.out.Unsubscribe(sub)
	}
}

// Err returns the terminal error of a series, if any.
func (r *Resampler) Err(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.series[id]; ok {
		return s.err
	}
	return fmt.Errorf("%w: %s", ErrUnknownSeries, id)
}

// receive drains the source into the series buffer until the source closes.
func (r *Resampler) receive(id string, s *series, source <-chan model.Sample) {
	for sample := range source {
		r.mu.Lock()
		s.buffer.add(sample)
		r.mu.Unlock()
	}
	r.mu.Lock()
	s.stopped = true
	s.err = fmt.Errorf("%w: %s", ErrSourceStopped, id)
	r.mu.Unlock()
}

// Run emits one output sample per series per period until the context is
// cancelled.
func (r *Resampler) Run(ctx context.Context) {
	for {
		if err := r.waitForBoundary(ctx); err != nil {
			return
		}
		r.mu.Lock()
		boundary := r.windowEnd
		for id, s := range r.series {
			r.emit(id, s, boundary)
		}
		r.windowEnd = r.windowEnd.Add(r.config.Period)
		r.mu.Unlock()
	}
}

// emit produces and publishes the output sample for one series. A stopped
// source gets a terminal gap sample and its streams are closed.
func (r *Resampler) emit(id string, s *series, boundary time.Time) {
	if s.stopped {
		r.log.Warnf("series %s stopped, emitting terminal sample", id)
		s.out.Publish(model.GapSample(boundary))
		s.out.Close()
		delete(r.series, id)
		return
	}
	out := s.buffer.resample(boundary)
	if !out.HasValue() {
		if rec, ok := r.sink.(coremetrics.ResampleGapRecorder); ok {
			if err := rec.RecordResampleGap(coremetrics.ResampleGapEvent{SeriesID: id, Time: boundary}); err != nil {
				r.log.Errorf("resample gap metrics error: %v", err)
			}
		}
	}
	s.out.Publish(out)
}

// waitForBoundary sleeps until the current window ends. If the boundary has
// already passed it returns immediately so the loop can catch up, warning
// when the wakeup was late by more than a tenth of the period.
func (r *Resampler) waitForBoundary(ctx context.Context) error {
	r.mu.Lock()
	windowEnd := r.windowEnd
	r.mu.Unlock()

	now := time.Now()
	if windowEnd.After(now) {
		timer := time.NewTimer(windowEnd.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return nil
	}

	if lag := now.Sub(windowEnd); lag > r.config.Period/10 {
		r.log.Warnf("resampling woke up %s late (period %s)", lag, r.config.Period)
	}
	// Yield to the context even when no sleep is needed.
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}
