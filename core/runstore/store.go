// Package runstore holds the most recent pipeline run so readers like the
// results API can serve it without re-running the pipeline.
package runstore

import (
	"sync"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/forecast"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
)

// RunResult is the full output of one pipeline run. Results are treated as
// immutable once stored; readers must not mutate the slices.
type RunResult struct {
	RunID       string                    `json:"run_id"`
	StartedAt   time.Time                 `json:"started_at"`
	FinishedAt  time.Time                 `json:"finished_at"`
	Origin      time.Time                 `json:"origin"`
	Horizon     int                       `json:"horizon"`
	Cutoff      time.Time                 `json:"cutoff,omitempty"`
	Load        timeseries.LoadReport     `json:"load"`
	Outcomes    []train.TrainOutcome      `json:"outcomes,omitempty"`
	Forecasts   []model.ForecastRow       `json:"forecasts,omitempty"`
	Evaluations []model.EvaluationRecord  `json:"evaluations,omitempty"`
	Skipped     []forecast.SkippedStation `json:"skipped_stations,omitempty"`
	Stations    []model.StationInfo       `json:"stations,omitempty"`
}

// StationForecasts returns the run's forecast rows for one station, in
// horizon order.
func (r RunResult) StationForecasts(id string) []model.ForecastRow {
	var rows []model.ForecastRow
	for _, row := range r.Forecasts {
		if row.StationID == id {
			rows = append(rows, row)
		}
	}
	return rows
}

// Summary condenses a run for the API and the exported run report.
type Summary struct {
	RunID       string                    `json:"run_id"`
	StartedAt   time.Time                 `json:"started_at"`
	FinishedAt  time.Time                 `json:"finished_at"`
	Origin      time.Time                 `json:"origin"`
	Horizon     int                       `json:"horizon"`
	Stations    int                       `json:"stations"`
	Trained     int                       `json:"trained"`
	Skipped     int                       `json:"skipped"`
	Forecasts   int                       `json:"forecast_rows"`
	Evaluations int                       `json:"evaluations"`
	Load        timeseries.LoadReport     `json:"load"`
	Outcomes    []train.TrainOutcome      `json:"outcomes,omitempty"`
	SkippedList []forecast.SkippedStation `json:"skipped_stations,omitempty"`
}

// Summary counts trained stations from the outcomes. Skipped covers both
// stations dropped at the train stage and stations the forecast pass could
// not serve.
func (r RunResult) Summary() Summary {
	trained := 0
	for _, out := range r.Outcomes {
		if out.ModelID != "" {
			trained++
		}
	}
	return Summary{
		RunID:       r.RunID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Origin:      r.Origin,
		Horizon:     r.Horizon,
		Stations:    r.Load.Stations,
		Trained:     trained,
		Skipped:     len(r.Outcomes) - trained + len(r.Skipped),
		Forecasts:   len(r.Forecasts),
		Evaluations: len(r.Evaluations),
		Load:        r.Load,
		Outcomes:    r.Outcomes,
		SkippedList: r.Skipped,
	}
}

// Store exposes the latest run to concurrent readers.
type Store interface {
	Set(RunResult)
	Latest() (RunResult, bool)
}

// MemoryStore keeps the latest run in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	latest RunResult
	ready  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Set(r RunResult) {
	s.mu.Lock()
	s.latest = r
	s.ready = true
	s.mu.Unlock()
}

// Latest returns the last stored run. The boolean is false until the first
// Set, which the API maps to 503.
func (s *MemoryStore) Latest() (RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ready
}
