package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// PipelineConfig frames one forecast run: which calendar year to ingest,
// how far ahead to predict, and the schedule for repeated runs.
type PipelineConfig struct {
	// Year restricts ingestion to one calendar year; 0 disables the filter.
	Year int `json:"year"`
	// Horizon is the number of hourly steps to forecast past the origin.
	Horizon int `json:"horizon"`
	// Timezone is the local zone of the source data. Calendar features and
	// the year filter are evaluated in it; storage stays UTC.
	Timezone string `json:"timezone"`
	// Schedule is a cron expression for repeated runs; empty means one shot.
	Schedule string `json:"schedule"`
}

// SetDefaults applies the Toronto production defaults.
func (c *PipelineConfig) SetDefaults() {
	if c.Year == 0 {
		c.Year = 2024
	}
	if c.Horizon == 0 {
		c.Horizon = 24
	}
	if c.Timezone == "" {
		c.Timezone = "America/Toronto"
	}
}

// Validate checks field ranges and the cron expression.
func (c PipelineConfig) Validate() error {
	if c.Year < 0 {
		return model.NewConfigError("pipeline.year", "must not be negative")
	}
	if c.Horizon <= 0 {
		return model.NewConfigError("pipeline.horizon", "must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return model.NewConfigError("pipeline.schedule", err.Error())
		}
	}
	return nil
}

// Location resolves the configured timezone.
func (c PipelineConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, model.NewConfigError("pipeline.timezone", fmt.Sprintf("unknown timezone %q", c.Timezone))
	}
	return loc, nil
}
