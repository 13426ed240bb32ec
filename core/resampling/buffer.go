package resampling

import (
	"math"
	"sort"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	"github.com/gridpool/gridpool/core/model"
)

// sourceProperties tracks what is known about an input series.
type sourceProperties struct {
	samplingStart   time.Time
	receivedSamples int
	// samplingPeriod is the observed average input period. Zero means it is
	// still unknown.
	samplingPeriod time.Duration
}

// seriesBuffer keeps the relevant raw samples of one input series. Samples
// newer than max(period, input period) * maxDataAgeInPeriods stay relevant
// and are passed to the aggregation on each boundary; older ones are dropped.
// Small timestamp jitter is tolerated because the window is selected by
// timestamp, not by arrival order.
type seriesBuffer struct {
	name    string
	config  Config
	agg     AggregateFunc
	log     logger.Logger
	samples []model.Sample
	maxLen  int
	props   sourceProperties
}

func newSeriesBuffer(name string, cfg Config, agg AggregateFunc, log logger.Logger) *seriesBuffer {
	return &seriesBuffer{
		name:   name,
		config: cfg,
		agg:    agg,
		log:    log,
		maxLen: cfg.InitialBufferLen,
	}
}

// add appends a raw sample, evicting the oldest when the buffer is full.
func (b *seriesBuffer) add(s model.Sample) {
	if len(b.samples) >= b.maxLen {
		drop := len(b.samples) - b.maxLen + 1
		b.samples = append(b.samples[:0], b.samples[drop:]...)
	}
	b.samples = append(b.samples, s)
	if b.props.samplingStart.IsZero() {
		b.props.samplingStart = s.Timestamp
	}
	b.props.receivedSamples++
}

// updateSamplingPeriod estimates the source period once enough data arrived.
// It runs once; the estimate is not revised afterwards.
func (b *seriesBuffer) updateSamplingPeriod(now time.Time) bool {
	if b.props.samplingPeriod != 0 ||
		b.props.samplingStart.IsZero() ||
		float64(b.props.receivedSamples) < b.config.Period.Seconds()*b.config.MaxDataAgeInPeriods ||
		len(b.samples) < b.maxLen ||
		!now.After(b.props.samplingStart) {
		return false
	}
	elapsed := now.Sub(b.props.samplingStart)
	b.props.samplingPeriod = elapsed / time.Duration(b.props.receivedSamples)
	b.log.Debugf("new input sampling period calculated for %s: %s", b.name, b.props.samplingPeriod)
	return true
}

// updateBufferLen resizes the buffer from the observed source rate so the
// whole lookback window fits.
func (b *seriesBuffer) updateBufferLen() bool {
	inputPeriod := b.props.samplingPeriod
	if inputPeriod <= 0 {
		return false
	}
	var newLen float64
	if inputPeriod > b.config.Period {
		newLen = b.config.MaxDataAgeInPeriods
	} else {
		newLen = b.config.Period.Seconds() / inputPeriod.Seconds() * b.config.MaxDataAgeInPeriods
	}
	length := int(math.Ceil(newLen))
	if length < 1 {
		length = 1
	}
	if length > b.config.MaxBufferLen {
		b.log.Errorf("new buffer length (%d) for series %s is too big, using %d instead",
			length, b.name, b.config.MaxBufferLen)
		length = b.config.MaxBufferLen
	} else if length > b.config.WarnBufferLen {
		b.log.Warnf("new buffer length (%d) for series %s bigger than %d",
			length, b.name, b.config.WarnBufferLen)
	}
	if length == b.maxLen {
		return false
	}
	b.maxLen = length
	if len(b.samples) > b.maxLen {
		drop := len(b.samples) - b.maxLen
		b.samples = append(b.samples[:0], b.samples[drop:]...)
	}
	return true
}

// lookback returns the relevant window length, considering whether the series
// is being down- or upsampled.
func (b *seriesBuffer) lookback() time.Duration {
	period := b.config.Period
	if b.props.samplingPeriod > period {
		period = b.props.samplingPeriod
	}
	return time.Duration(float64(period) * b.config.MaxDataAgeInPeriods)
}

// resample produces the output sample for the window ending at boundary.
// The presence branch comes first: only when no raw sample fell in the window
// is the output a gap. A window whose only sample carries an exact zero
// yields that zero.
func (b *seriesBuffer) resample(boundary time.Time) model.Sample {
	if b.updateSamplingPeriod(boundary) {
		b.updateBufferLen()
	}

	minTS := boundary.Add(-b.lookback())
	var relevant []model.Sample
	for _, s := range b.samples {
		if s.Timestamp.After(minTS) && !s.Timestamp.After(boundary) {
			relevant = append(relevant, s)
		}
	}
	if len(relevant) == 0 {
		return model.GapSample(boundary)
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Timestamp.Before(relevant[j].Timestamp)
	})
	return model.Sample{Timestamp: boundary, Value: b.agg(relevant)}
}
