package model

import (
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// Sample is one point of a telemetry series. A nil Value means the value was
// unknown at that instant, which is distinct from a present value of exactly
// zero. That distinction must survive resampling end-to-end.
type Sample struct {
	Timestamp time.Time
	Value     *quantity.Quantity
}

// NewSample builds a sample carrying a value.
func NewSample(ts time.Time, q quantity.Quantity) Sample {
	return Sample{Timestamp: ts, Value: &q}
}

// GapSample builds a sample denoting "value unknown".
func GapSample(ts time.Time) Sample {
	return Sample{Timestamp: ts}
}

// HasValue reports whether the sample carries a value, even a zero one.
func (s Sample) HasValue() bool { return s.Value != nil }
