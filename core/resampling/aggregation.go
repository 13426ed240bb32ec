package resampling

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

// Aggregation names accepted in configuration.
const (
	AggregationLast = "last"
	AggregationMean = "mean"
	AggregationMax  = "max"
	AggregationMin  = "min"
)

// AggregateFunc reduces the relevant samples of one window to a single value.
// It is only called when at least one sample fell in the window; the presence
// check always happens before any value inspection, so a window holding one
// exact-zero sample aggregates to zero, never to nil. A nil return means all
// samples in the window carried no value.
type AggregateFunc func(samples []model.Sample) *quantity.Quantity

func aggregationByName(name string) (AggregateFunc, error) {
	switch name {
	case "", AggregationLast:
		return Last, nil
	case AggregationMean:
		return Mean, nil
	case AggregationMax:
		return Max, nil
	case AggregationMin:
		return Min, nil
	default:
		return nil, fmt.Errorf("unknown aggregation %q", name)
	}
}

// Last returns the value of the most recent sample carrying one.
func Last(samples []model.Sample) *quantity.Quantity {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].HasValue() {
			v := *samples[i].Value
			return &v
		}
	}
	return nil
}

// Mean returns the arithmetic mean of all values present in the window.
func Mean(samples []model.Sample) *quantity.Quantity {
	var values []float64
	var unit quantity.Unit
	for _, s := range samples {
		if s.HasValue() {
			values = append(values, s.Value.Value)
			unit = s.Value.Unit
		}
	}
	if len(values) == 0 {
		return nil
	}
	q := quantity.Quantity{Value: stat.Mean(values, nil), Unit: unit}
	return &q
}

// Max returns the largest value present in the window.
func Max(samples []model.Sample) *quantity.Quantity {
	var best *quantity.Quantity
	for _, s := range samples {
		if !s.HasValue() {
			continue
		}
		if best == nil || s.Value.Value > best.Value {
			v := *s.Value
			best = &v
		}
	}
	return best
}

// Min returns the smallest value present in the window.
func Min(samples []model.Sample) *quantity.Quantity {
	var best *quantity.Quantity
	for _, s := range samples {
		if !s.HasValue() {
			continue
		}
		if best == nil || s.Value.Value < best.Value {
			v := *s.Value
			best = &v
		}
	}
	return best
}
