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

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/source"
)

// Config is the root configuration of a forecast service.
type Config struct {
	Pipeline   PipelineConfig         `json:"pipeline"`
	Features   FeaturesConfig         `json:"features"`
	Train      train.Config           `json:"train"`
	Source     factory.ModuleConfig   `json:"source"`
	Stations   StationsConfig         `json:"stations"`
	Weather    source.WeatherConfig   `json:"weather"`
	Holidays   HolidaysConfig         `json:"holidays"`
	Publishers []factory.ModuleConfig `json:"publishers"`
	Metrics    MetricsConfig          `json:"metrics"`
	Export     ExportConfig           `json:"export"`
	API        APIConfig              `json:"api"`
}

// Load reads the config file at path, applies BIKECAST_* environment
// overrides, fills defaults and validates every section.
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
	if err := k.Load(env.Provider("BIKECAST_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "bikecast_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields in every section.
func (c *Config) SetDefaults() {
	c.Pipeline.SetDefaults()
	c.Features.SetDefaults()
	c.Train.SetDefaults()
	c.Stations.SetDefaults()
	c.Metrics.SetDefaults()
	c.Export.SetDefaults()
	c.API.SetDefaults()
	if c.Source.Type == "" {
		c.Source.Type = "csv"
	}
}

// Validate checks every section and returns the first config error.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Features.Validate(); err != nil {
		return err
	}
	if err := c.Train.Validate(); err != nil {
		return err
	}
	if err := c.Holidays.Validate(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	return nil
}
