package config

import (
	"fmt"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// FeaturesConfig selects the predictors derived from the demand grid.
type FeaturesConfig struct {
	Lags             []int  `json:"lags"`
	RollingWindows   []int  `json:"rolling_windows"`
	NullPolicy       string `json:"null_policy"`
	IncompletePolicy string `json:"incomplete_policy"`
	HourEncoding     string `json:"hour_encoding"`
}

// SetDefaults applies the daily and weekly seasonality defaults.
func (c *FeaturesConfig) SetDefaults() {
	if len(c.Lags) == 0 {
		c.Lags = []int{24, 168}
	}
	if len(c.RollingWindows) == 0 {
		c.RollingWindows = []int{24, 168}
	}
	if c.NullPolicy == "" {
		c.NullPolicy = string(feature.NullDrop)
	}
	if c.IncompletePolicy == "" {
		c.IncompletePolicy = string(feature.IncompleteDrop)
	}
	if c.HourEncoding == "" {
		c.HourEncoding = string(feature.HourCyclical)
	}
}

// Validate checks lag and window ranges and the policy enums.
func (c FeaturesConfig) Validate() error {
	if len(c.Lags) == 0 {
		return model.NewConfigError("features.lags", "at least one lag is required")
	}
	for _, l := range c.Lags {
		if l <= 0 {
			return model.NewConfigError("features.lags", fmt.Sprintf("lag %d must be positive", l))
		}
	}
	for _, w := range c.RollingWindows {
		if w <= 0 {
			return model.NewConfigError("features.rolling_windows", fmt.Sprintf("window %d must be positive", w))
		}
	}
	switch feature.NullPolicy(c.NullPolicy) {
	case feature.NullDrop, feature.NullZeroFill, feature.NullForwardFill:
	default:
		return model.NewConfigError("features.null_policy", fmt.Sprintf("unknown policy %q", c.NullPolicy))
	}
	switch feature.IncompletePolicy(c.IncompletePolicy) {
	case feature.IncompleteDrop, feature.IncompleteFlag:
	default:
		return model.NewConfigError("features.incomplete_policy", fmt.Sprintf("unknown policy %q", c.IncompletePolicy))
	}
	switch feature.HourEncoding(c.HourEncoding) {
	case feature.HourCyclical, feature.HourCategorical:
	default:
		return model.NewConfigError("features.hour_encoding", fmt.Sprintf("unknown encoding %q", c.HourEncoding))
	}
	return nil
}
