package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// ModelSet holds the fitted models a forecast pass draws from: either one
// global model, or per-station entries.
type ModelSet struct {
	Global   *Fitted
	Stations map[string]*Fitted
}

// For resolves the model serving a station.
func (s ModelSet) For(stationID string) (*Fitted, bool) {
	if f, ok := s.Stations[stationID]; ok {
		return f, true
	}
	if s.Global != nil {
		return s.Global, true
	}
	return nil, false
}

// Empty reports whether the set holds no models at all.
func (s ModelSet) Empty() bool { return s.Global == nil && len(s.Stations) == 0 }

// stationIDs returns the union of grid and model stations, ascending.
func (s ModelSet) stationIDs(grid *timeseries.Grid) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, id := range grid.Stations() {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range s.Stations {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SkippedStation reports one station a forecast pass could not serve.
type SkippedStation struct {
	StationID string `json:"station_id"`
	Reason    string `json:"reason"`
	Err       error  `json:"-"`
}

// Forecaster turns fitted models plus the latest known history into
// ForecastRows. Weather, when set, feeds weather feature lookups.
type Forecaster struct {
	Weather feature.WeatherProvider
}

// Forecast predicts horizon steps after origin for every station the set
// and grid cover. Output rows are grouped by ascending station id, ordered
// by horizon step within a station. Stations that cannot be served are
// skipped and reported, never silently dropped, and never abort the rest.
func (fc Forecaster) Forecast(set ModelSet, grid *timeseries.Grid, origin time.Time, horizon int) ([]model.ForecastRow, []SkippedStation, error) {
	if horizon <= 0 {
		return nil, nil, model.NewConfigError("pipeline.horizon", "must be positive")
	}
	origin = timeseries.HourOf(origin)

	var rows []model.ForecastRow
	var skipped []SkippedStation
	skip := func(id string, err error) {
		skipped = append(skipped, SkippedStation{StationID: id, Reason: err.Error(), Err: err})
	}

	for _, id := range set.stationIDs(grid) {
		fitted, ok := set.For(id)
		if !ok {
			skip(id, fmt.Errorf("station %s: %w", id, ErrNotFitted))
			continue
		}
		m, err := New(fitted.Family)
		if err != nil {
			skip(id, err)
			continue
		}
		start, _, ok := grid.Span(id)
		if !ok {
			skip(id, fmt.Errorf("station %s has no history in the grid", id))
			continue
		}
		hist := NewHistory(id, grid.Between(id, start, origin), origin, fc.Weather)
		preds, err := m.Predict(fitted, origin, horizon, hist)
		if err != nil {
			skip(id, fmt.Errorf("station %s: %w", id, err))
			continue
		}
		for step, yhat := range preds {
			rows = append(rows, model.ForecastRow{
				StationID:   id,
				Timestamp:   origin.Add(time.Duration(step+1) * time.Hour),
				Yhat:        yhat,
				HorizonStep: step + 1,
				ModelID:     fitted.ID,
			})
		}
	}
	return rows, skipped, nil
}
