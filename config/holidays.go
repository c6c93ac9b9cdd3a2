package config

import (
	"fmt"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// HolidaysConfig feeds the is-holiday feature. Without a file or inline
// dates the feature is always false.
type HolidaysConfig struct {
	// File is a YAML list of YYYY-MM-DD dates.
	File string `json:"file"`
	// Dates are inline YYYY-MM-DD dates, merged with the file.
	Dates []string `json:"dates"`
}

// Validate parses the inline dates. The file is read at service start.
func (c HolidaysConfig) Validate() error {
	for _, raw := range c.Dates {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return model.NewConfigError("holidays.dates", fmt.Sprintf("invalid date %q", raw))
		}
	}
	return nil
}
