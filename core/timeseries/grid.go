package timeseries

import (
	"fmt"
	"sort"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// LoadConfig scopes a Load call. Year restricts ingestion to one calendar
// year, evaluated in Location (UTC when nil); rows outside it are filtered
// and counted, never loaded. Year 0 disables the filter.
type LoadConfig struct {
	Year     int
	Location *time.Location
}

// LoadReport summarizes what Load accepted and what it materialized.
type LoadReport struct {
	RowsIn           int       `json:"rows_in"`
	RowsFilteredYear int       `json:"rows_filtered_year"`
	RowsDeduplicated int       `json:"rows_deduplicated"`
	Stations         int       `json:"stations"`
	Hours            int       `json:"hours"`
	Gaps             int       `json:"gaps"`
	TotalDemand      float64   `json:"total_demand"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
}

// Grid is a complete station-by-hour demand grid. Every station covers each
// hour between its own first and last observation; source gaps are present
// as observations with nil demand. A Grid is immutable after Load and safe
// for concurrent readers.
type Grid struct {
	stations map[string]*series
	names    []string
	maxTS    time.Time
	report   LoadReport
}

type series struct {
	start   time.Time
	values  []float64
	present []bool
}

// HourOf truncates t to the hour in UTC.
func HourOf(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// Load builds the grid from raw observations. Duplicate station-hours with
// equal demand collapse into one row; duplicates with conflicting demand
// fail with an IntegrityError. A duplicate where one row is missing and the
// other carries a value keeps the value. Load fails with ErrEmptyInput when
// no observation survives ingestion.
func Load(observations []model.Observation, cfg LoadConfig) (*Grid, error) {
	if len(observations) == 0 {
		return nil, ErrEmptyInput
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	report := LoadReport{RowsIn: len(observations)}
	byStation := make(map[string]map[time.Time]*float64)
	for _, obs := range observations {
		ts := HourOf(obs.Timestamp)
		if cfg.Year != 0 && ts.In(loc).Year() != cfg.Year {
			report.RowsFilteredYear++
			continue
		}
		hours, ok := byStation[obs.StationID]
		if !ok {
			hours = make(map[time.Time]*float64)
			byStation[obs.StationID] = hours
		}
		prev, seen := hours[ts]
		if !seen {
			hours[ts] = obs.Demand
			continue
		}
		report.RowsDeduplicated++
		switch {
		case obs.Demand == nil:
		case prev == nil:
			hours[ts] = obs.Demand
		case *prev != *obs.Demand:
			return nil, &IntegrityError{
				StationID: obs.StationID,
				Timestamp: ts,
				Values:    [2]float64{*prev, *obs.Demand},
			}
		}
	}
	if len(byStation) == 0 {
		return nil, fmt.Errorf("no observations within year %d: %w", cfg.Year, ErrEmptyInput)
	}

	g := &Grid{stations: make(map[string]*series, len(byStation))}
	for id, hours := range byStation {
		var min, max time.Time
		for ts := range hours {
			if min.IsZero() || ts.Before(min) {
				min = ts
			}
			if ts.After(max) {
				max = ts
			}
		}
		n := int(max.Sub(min)/time.Hour) + 1
		s := &series{start: min, values: make([]float64, n), present: make([]bool, n)}
		for ts, v := range hours {
			if v != nil {
				i := int(ts.Sub(min) / time.Hour)
				s.values[i] = *v
				s.present[i] = true
				report.TotalDemand += *v
			}
		}
		for _, ok := range s.present {
			if !ok {
				report.Gaps++
			}
		}
		report.Hours += n
		g.stations[id] = s
		g.names = append(g.names, id)
		if max.After(g.maxTS) {
			g.maxTS = max
		}
		if report.WindowStart.IsZero() || min.Before(report.WindowStart) {
			report.WindowStart = min
		}
	}
	sort.Strings(g.names)
	report.Stations = len(g.names)
	report.WindowEnd = g.maxTS
	g.report = report
	return g, nil
}

// Stations returns the station ids in ascending order.
func (g *Grid) Stations() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Span returns the first and last grid hour for the station.
func (g *Grid) Span(stationID string) (start, end time.Time, ok bool) {
	s, ok := g.stations[stationID]
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return s.start, s.start.Add(time.Duration(len(s.values)-1) * time.Hour), true
}

// MaxTimestamp returns the latest grid hour across all stations.
func (g *Grid) MaxTimestamp() time.Time { return g.maxTS }

// Report returns ingestion counters for the Load call that built the grid.
func (g *Grid) Report() LoadReport { return g.report }

// At returns the observation for one station-hour. ok is false when the
// station is unknown or the hour falls outside the station's span; a grid
// hour with no recorded demand is returned with nil demand and ok true.
func (g *Grid) At(stationID string, ts time.Time) (model.Observation, bool) {
	s, ok := g.stations[stationID]
	if !ok {
		return model.Observation{}, false
	}
	ts = HourOf(ts)
	i := int(ts.Sub(s.start) / time.Hour)
	if i < 0 || i >= len(s.values) {
		return model.Observation{}, false
	}
	return s.observation(stationID, i), true
}

// Between returns the station's observations for every hour in [t0, t1],
// clipped to the station's span and ordered by time.
func (g *Grid) Between(stationID string, t0, t1 time.Time) []model.Observation {
	s, ok := g.stations[stationID]
	if !ok {
		return nil
	}
	t0, t1 = HourOf(t0), HourOf(t1)
	lo := int(t0.Sub(s.start) / time.Hour)
	hi := int(t1.Sub(s.start) / time.Hour)
	if lo < 0 {
		lo = 0
	}
	if hi >= len(s.values) {
		hi = len(s.values) - 1
	}
	if lo > hi {
		return nil
	}
	out := make([]model.Observation, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, s.observation(stationID, i))
	}
	return out
}

func (s *series) observation(stationID string, i int) model.Observation {
	obs := model.Observation{
		StationID: stationID,
		Timestamp: s.start.Add(time.Duration(i) * time.Hour),
	}
	if s.present[i] {
		v := s.values[i]
		obs.Demand = &v
	}
	return obs
}
