package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines settings for the structured logger.
type LoggingConfig struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string `json:"level"`
	// Pretty switches to the human readable console writer.
	Pretty bool `json:"pretty"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the log level.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
}
