package metrics

import "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"

// MultiSink fans events out to multiple sinks. Optional recorder methods
// are forwarded only to sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run summary to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordStationOutcome forwards station outcomes.
func (m *MultiSink) RecordStationOutcome(ev StationOutcomeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StationRecorder); ok {
			if err := rec.RecordStationOutcome(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordForecasts forwards forecast rows.
func (m *MultiSink) RecordForecasts(rows []model.ForecastRow) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ForecastRecorder); ok {
			if err := rec.RecordForecasts(rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordEvaluations forwards evaluation records.
func (m *MultiSink) RecordEvaluations(recs []model.EvaluationRecord) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EvaluationRecorder); ok {
			if err := rec.RecordEvaluations(recs); err != nil {
				return err
			}
		}
	}
	return nil
}
