package metrics

import (
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// RunEvent summarizes one pipeline run for observability purposes.
type RunEvent struct {
	RunID     string
	Status    string // "ok" or "failed"
	Stations  int
	Trained   int
	Skipped   int
	Forecasts int
	Duration  time.Duration
	// Stages holds per-stage wall time, keyed by stage name (load,
	// features, train, forecast, evaluate, deliver).
	Stages map[string]time.Duration
	Time   time.Time
}

// MetricsSink records pipeline runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// StationOutcomeEvent captures one station's outcome in a run. Stage is
// "train" or "forecast".
type StationOutcomeEvent struct {
	StationID string
	ModelID   string
	Family    string
	Stage     string
	Rows      int
	Trained   bool
	Reason    string
	Time      time.Time
}

// StationRecorder records per-station training outcomes.
type StationRecorder interface {
	RecordStationOutcome(ev StationOutcomeEvent) error
}

// ForecastRecorder is implemented by sinks able to persist forecast rows.
type ForecastRecorder interface {
	RecordForecasts(rows []model.ForecastRow) error
}

// EvaluationRecorder is implemented by sinks able to persist evaluation
// records.
type EvaluationRecorder interface {
	RecordEvaluations(recs []model.EvaluationRecord) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                         { return nil }
func (NopSink) RecordStationOutcome(StationOutcomeEvent) error   { return nil }
func (NopSink) RecordForecasts([]model.ForecastRow) error        { return nil }
func (NopSink) RecordEvaluations([]model.EvaluationRecord) error { return nil }

// Ensure NopSink implements every optional recorder.
var (
	_ StationRecorder    = NopSink{}
	_ ForecastRecorder   = NopSink{}
	_ EvaluationRecorder = NopSink{}
)
