package resampling

import (
	"fmt"
	"time"
)

// Default buffer sizing. Buffers start small and are resized from the
// observed source rate so every requested past period fits.
const (
	DefaultBufferLenInit = 16
	DefaultBufferLenWarn = 128
	DefaultBufferLenMax  = 1024
)

// DefaultMaxDataAgeInPeriods is how many periods back a raw sample stays
// relevant for resampling.
const DefaultMaxDataAgeInPeriods = 3.0

// DefaultPeriod is the output cadence when none is configured.
const DefaultPeriod = time.Second

// Config holds the resampler settings.
type Config struct {
	// Period is the cadence at which output samples are emitted. Must be
	// positive. Configuration files set PeriodMS instead.
	Period time.Duration `json:"-"`

	// PeriodMS is the wire form of Period, in milliseconds.
	PeriodMS int `json:"period_ms"`

	// MaxDataAgeInPeriods bounds the lookback window, expressed in periods
	// (resampling period when downsampling, observed input period when
	// upsampling). Must be at least 1.
	MaxDataAgeInPeriods float64 `json:"max_data_age_in_periods"`

	// Aggregation names the function applied to the relevant samples of each
	// window. Empty selects "last".
	Aggregation string `json:"aggregation"`

	InitialBufferLen int `json:"initial_buffer_len"`
	WarnBufferLen    int `json:"warn_buffer_len"`
	MaxBufferLen     int `json:"max_buffer_len"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Period == 0 && c.PeriodMS > 0 {
		c.Period = time.Duration(c.PeriodMS) * time.Millisecond
	}
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.MaxDataAgeInPeriods == 0 {
		c.MaxDataAgeInPeriods = DefaultMaxDataAgeInPeriods
	}
	if c.Aggregation == "" {
		c.Aggregation = AggregationLast
	}
	if c.InitialBufferLen == 0 {
		c.InitialBufferLen = DefaultBufferLenInit
	}
	if c.WarnBufferLen == 0 {
		c.WarnBufferLen = DefaultBufferLenWarn
	}
	if c.MaxBufferLen == 0 {
		c.MaxBufferLen = DefaultBufferLenMax
	}
}

// Validate checks that config values are in range.
func (c Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("resampling period (%s) must be positive", c.Period)
	}
	if c.MaxDataAgeInPeriods < 1.0 {
		return fmt.Errorf("max_data_age_in_periods (%g) should be at least 1.0", c.MaxDataAgeInPeriods)
	}
	if _, err := aggregationByName(c.Aggregation); err != nil {
		return err
	}
	if c.InitialBufferLen < 1 {
		return fmt.Errorf("initial_buffer_len (%d) should be at least 1", c.InitialBufferLen)
	}
	if c.WarnBufferLen < 1 {
		return fmt.Errorf("warn_buffer_len (%d) should be at least 1", c.WarnBufferLen)
	}
	if c.MaxBufferLen <= c.WarnBufferLen {
		return fmt.Errorf("max_buffer_len (%d) should be bigger than warn_buffer_len (%d)",
			c.MaxBufferLen, c.WarnBufferLen)
	}
	if c.InitialBufferLen > c.MaxBufferLen {
		return fmt.Errorf("initial_buffer_len (%d) is bigger than max_buffer_len (%d)",
			c.InitialBufferLen, c.MaxBufferLen)
	}
	return nil
}
