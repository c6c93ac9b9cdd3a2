package metrics

import (
	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records pipeline runs as Prometheus metrics.
type PromSink struct {
	runs     *prometheus.CounterVec
	trained  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	rows     prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewPromSink registers pipeline metrics on the default Prometheus
// registerer. The metrics endpoint is served separately, see
// StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered are reused, so rebuilding the sink is safe.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bikecast_runs_total",
		Help: "Total number of forecast runs",
	}, []string{"status"})
	trained := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bikecast_stations_trained_total",
		Help: "Stations that produced a fitted model",
	}, []string{"family"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bikecast_stations_skipped_total",
		Help: "Stations dropped from a run, by pipeline stage",
	}, []string{"stage"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bikecast_forecast_rows_total",
		Help: "Forecast rows produced across all runs",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bikecast_stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(trained); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			trained = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(skipped); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			skipped = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(rows); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			rows = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{runs: runs, trained: trained, skipped: skipped, rows: rows, duration: duration}, nil
}

// RecordRun counts the run and observes its stage durations.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status).Inc()
	s.rows.Add(float64(ev.Forecasts))
	s.duration.WithLabelValues("run").Observe(ev.Duration.Seconds())
	for stage, d := range ev.Stages {
		s.duration.WithLabelValues(stage).Observe(d.Seconds())
	}
	return nil
}

// RecordStationOutcome counts trained and skipped stations.
func (s *PromSink) RecordStationOutcome(ev coremetrics.StationOutcomeEvent) error {
	if ev.Trained {
		s.trained.WithLabelValues(ev.Family).Inc()
	} else {
		s.skipped.WithLabelValues(ev.Stage).Inc()
	}
	return nil
}
