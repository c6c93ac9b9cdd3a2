package feature

import (
	"sort"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// WeatherProvider resolves the weather in effect at a given hour.
type WeatherProvider interface {
	// At returns the most recent observation at or before ts.
	At(ts time.Time) (model.WeatherObservation, bool)
}

// WeatherTable is an immutable WeatherProvider over hourly observations.
// Lookups forward-fill from the latest observation at or before the
// requested hour.
type WeatherTable struct {
	rows []model.WeatherObservation
}

// NewWeatherTable copies and sorts the observations by time.
func NewWeatherTable(rows []model.WeatherObservation) *WeatherTable {
	sorted := make([]model.WeatherObservation, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &WeatherTable{rows: sorted}
}

func (t *WeatherTable) At(ts time.Time) (model.WeatherObservation, bool) {
	i := sort.Search(len(t.rows), func(i int) bool {
		return t.rows[i].Timestamp.After(ts)
	})
	if i == 0 {
		return model.WeatherObservation{}, false
	}
	return t.rows[i-1], true
}
