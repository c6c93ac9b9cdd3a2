package config

import (
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/source"
)

// StationsConfig points at the GBFS station directory.
type StationsConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// SetDefaults applies the Toronto GBFS endpoint.
func (c *StationsConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = source.DefaultGBFSStationURL
	}
}

// MetricsConfig lists the metrics sinks and the Prometheus listen address.
type MetricsConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen is the /metrics server address, used when a prometheus sink
	// is configured.
	Listen string `json:"listen"`
}

// SetDefaults applies the conventional exporter port.
func (c *MetricsConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":2112"
	}
}

// HasPrometheus reports whether a prometheus sink is configured.
func (c MetricsConfig) HasPrometheus() bool {
	for _, s := range c.Sinks {
		if s.Type == "prometheus" {
			return true
		}
	}
	return false
}

// ExportConfig controls the flat-table output of each run.
type ExportConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// SetDefaults applies the output directory.
func (c *ExportConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "out"
	}
}

// Validate checks mandatory fields.
func (c ExportConfig) Validate() error {
	if c.Enabled && c.Dir == "" {
		return model.NewConfigError("export.dir", "directory is required")
	}
	return nil
}

// APIConfig controls the read-only results server.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// SetDefaults applies the listen address.
func (c *APIConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}
