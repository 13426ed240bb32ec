package resampling

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.Period != DefaultPeriod {
		t.Errorf("period = %s", c.Period)
	}
	if c.MaxDataAgeInPeriods != DefaultMaxDataAgeInPeriods {
		t.Errorf("max data age = %g", c.MaxDataAgeInPeriods)
	}
	if c.Aggregation != AggregationLast {
		t.Errorf("aggregation = %q", c.Aggregation)
	}
	if c.InitialBufferLen != DefaultBufferLenInit || c.WarnBufferLen != DefaultBufferLenWarn || c.MaxBufferLen != DefaultBufferLenMax {
		t.Error("buffer defaults not applied")
	}
}

func TestConfigPeriodFromMS(t *testing.T) {
	c := Config{PeriodMS: 1500}
	c.SetDefaults()
	if c.Period != 1500*time.Millisecond {
		t.Errorf("period = %s", c.Period)
	}
	// An explicit Period wins over the wire form.
	c = Config{Period: time.Second, PeriodMS: 500}
	c.SetDefaults()
	if c.Period != time.Second {
		t.Errorf("period = %s", c.Period)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Period: time.Second}
	valid.SetDefaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	cases := []Config{
		{},
		{Period: time.Second, MaxDataAgeInPeriods: 0.5, Aggregation: "last", InitialBufferLen: 1, WarnBufferLen: 1, MaxBufferLen: 2},
		{Period: time.Second, MaxDataAgeInPeriods: 2, Aggregation: "median", InitialBufferLen: 1, WarnBufferLen: 1, MaxBufferLen: 2},
		{Period: time.Second, MaxDataAgeInPeriods: 2, Aggregation: "last", InitialBufferLen: 0, WarnBufferLen: 1, MaxBufferLen: 2},
		{Period: time.Second, MaxDataAgeInPeriods: 2, Aggregation: "last", InitialBufferLen: 1, WarnBufferLen: 2, MaxBufferLen: 2},
		{Period: time.Second, MaxDataAgeInPeriods: 2, Aggregation: "last", InitialBufferLen: 9, WarnBufferLen: 1, MaxBufferLen: 8},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
