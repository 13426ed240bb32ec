package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridpool/gridpool/core/metrics"
	"github.com/gridpool/gridpool/core/power"
	"github.com/gridpool/gridpool/core/resampling"
	"github.com/gridpool/gridpool/infra/mqtt"
	"github.com/gridpool/gridpool/infra/telemetry"
)

// Config is the root configuration of the coordination service.
type Config struct {
	MQTT       mqtt.Config       `json:"mqtt"`
	Power      power.Config      `json:"power"`
	Resampling resampling.Config `json:"resampling"`
	Telemetry  telemetry.Config  `json:"telemetry"`
	Metrics    metrics.Config    `json:"metrics"`
	Logging    LoggingConfig     `json:"logging"`
}

// Load reads, overrides and validates the configuration at path. YAML and
// JSON files are supported; environment variables prefixed GP_ override file
// values, with "__" as the nesting separator.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("GP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "gp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Power.SetDefaults()
	cfg.Resampling.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Power.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Power.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Resampling.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
