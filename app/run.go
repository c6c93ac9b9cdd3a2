package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/evaluate"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/events"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/forecast"
	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/runstore"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/pkg/export"
)

// RunOnce executes one full pipeline pass: load, features, train, forecast,
// evaluate when a holdout is configured, then store, export, publish and
// record the result. The returned RunResult is what the run store holds.
func (s *Service) RunOnce(ctx context.Context) (runstore.RunResult, error) {
	runID := uuid.NewString()[:8]
	started := time.Now()
	stages := make(map[string]time.Duration)
	res := runstore.RunResult{RunID: runID, StartedAt: started, Horizon: s.cfg.Pipeline.Horizon}
	s.bus.Publish(events.RunStarted{RunID: runID, At: started})

	fail := func(err error) (runstore.RunResult, error) {
		res.FinishedAt = time.Now()
		s.log.Errorf("run %s failed: %v", runID, err)
		ev := coremetrics.RunEvent{
			RunID:    runID,
			Status:   "failed",
			Duration: time.Since(started),
			Stages:   stages,
			Time:     time.Now(),
		}
		if sinkErr := s.sink.RecordRun(ev); sinkErr != nil {
			s.log.Warnf("run %s: metrics sink: %v", runID, sinkErr)
		}
		s.bus.Publish(events.RunCompleted{RunID: runID, Duration: time.Since(started), Err: err})
		return res, err
	}

	t0 := time.Now()
	obs, err := s.source.Observations(ctx)
	if err != nil {
		return fail(fmt.Errorf("load observations: %w", err))
	}
	grid, err := timeseries.Load(obs, timeseries.LoadConfig{Year: s.cfg.Pipeline.Year, Location: s.loc})
	if err != nil {
		return fail(fmt.Errorf("load grid: %w", err))
	}
	res.Load = grid.Report()
	stages["load"] = time.Since(t0)
	s.log.Infof("run %s: grid ready, %d stations, %d hours, %d gaps",
		runID, res.Load.Stations, res.Load.Hours, res.Load.Gaps)

	t0 = time.Now()
	weather := s.fetchWeather(ctx, grid)
	builder, err := feature.NewBuilder(s.featureConfig(weather))
	if err != nil {
		return fail(err)
	}
	rows := builder.Build(grid)
	stages["features"] = time.Since(t0)

	t0 = time.Now()
	trainer, err := train.New(s.cfg.Train, builder.Schema(), s.log, s.bus)
	if err != nil {
		return fail(err)
	}
	trained, err := trainer.Train(ctx, grid, rows)
	if trained != nil {
		res.Outcomes = trained.Outcomes
		if s.cfg.Train.HoldoutHours > 0 {
			res.Cutoff = trained.Cutoff
		}
	}
	if err != nil {
		return fail(fmt.Errorf("train: %w", err))
	}
	stages["train"] = time.Since(t0)

	// With a holdout the forecast starts at its first hour so evaluation
	// compares predictions against never-trained actuals; without one it
	// starts past the end of the grid.
	t0 = time.Now()
	origin := grid.MaxTimestamp()
	if s.cfg.Train.HoldoutHours > 0 {
		origin = trained.Cutoff.Add(-time.Hour)
	}
	res.Origin = origin
	fc := forecast.Forecaster{Weather: weather}
	forecasts, skipped, err := fc.Forecast(trained.Models, grid, origin, s.cfg.Pipeline.Horizon)
	if err != nil {
		return fail(fmt.Errorf("forecast: %w", err))
	}
	res.Forecasts = forecasts
	res.Skipped = skipped
	for _, sk := range skipped {
		s.bus.Publish(events.StationSkipped{StationID: sk.StationID, Stage: "forecast", Err: sk.Err})
	}
	stages["forecast"] = time.Since(t0)

	if s.cfg.Train.HoldoutHours > 0 {
		t0 = time.Now()
		res.Evaluations = evaluate.Evaluate(forecasts, grid)
		stages["evaluate"] = time.Since(t0)
	}

	t0 = time.Now()
	s.deliver(ctx, &res)
	stages["deliver"] = time.Since(t0)

	summary := res.Summary()
	ev := coremetrics.RunEvent{
		RunID:     runID,
		Status:    "ok",
		Stations:  summary.Stations,
		Trained:   summary.Trained,
		Skipped:   summary.Skipped,
		Forecasts: len(forecasts),
		Duration:  time.Since(started),
		Stages:    stages,
		Time:      time.Now(),
	}
	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("run %s: metrics sink: %v", runID, err)
	}
	s.bus.Publish(events.RunCompleted{
		RunID:     runID,
		Stations:  summary.Stations,
		Forecasts: len(forecasts),
		Duration:  time.Since(started),
	})
	s.log.Infof("run %s complete: %d stations, %d forecast rows in %s",
		runID, summary.Stations, len(forecasts), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// deliver stores the result and pushes it to every configured output.
// Output failures are logged, never fatal: the run itself succeeded.
func (s *Service) deliver(ctx context.Context, res *runstore.RunResult) {
	if s.directory != nil {
		stations, err := s.directory.Stations(ctx)
		if err != nil {
			s.log.Warnf("run %s: station directory unavailable: %v", res.RunID, err)
		} else {
			res.Stations = stations
		}
	}
	res.FinishedAt = time.Now()
	s.store.Set(*res)

	if s.cfg.Export.Enabled {
		if err := export.WriteRunFiles(s.cfg.Export.Dir, *res); err != nil {
			s.log.Errorf("run %s: export failed: %v", res.RunID, err)
		}
	}
	if len(res.Forecasts) > 0 {
		if err := s.publisher.PublishForecasts(ctx, res.RunID, res.Forecasts); err != nil {
			s.log.Errorf("run %s: publish failed: %v", res.RunID, err)
		}
	}
	if rec, ok := s.sink.(coremetrics.ForecastRecorder); ok && len(res.Forecasts) > 0 {
		if err := rec.RecordForecasts(res.Forecasts); err != nil {
			s.log.Warnf("run %s: forecast sink: %v", res.RunID, err)
		}
	}
	if rec, ok := s.sink.(coremetrics.EvaluationRecorder); ok && len(res.Evaluations) > 0 {
		if err := rec.RecordEvaluations(res.Evaluations); err != nil {
			s.log.Warnf("run %s: evaluation sink: %v", res.RunID, err)
		}
	}
}

// fetchWeather returns hourly weather covering the grid window plus the
// forecast horizon. A fetch failure degrades the run to no-weather features.
func (s *Service) fetchWeather(ctx context.Context, grid *timeseries.Grid) feature.WeatherProvider {
	if s.weather == nil {
		return nil
	}
	rep := grid.Report()
	end := rep.WindowEnd.Add(time.Duration(s.cfg.Pipeline.Horizon) * time.Hour)
	rows, err := s.weather.Hourly(ctx, rep.WindowStart, end)
	if err != nil {
		s.log.Warnf("weather unavailable, continuing without weather features: %v", err)
		return nil
	}
	return feature.NewWeatherTable(rows)
}

func (s *Service) featureConfig(weather feature.WeatherProvider) feature.Config {
	return feature.Config{
		Lags:           s.cfg.Features.Lags,
		RollingWindows: s.cfg.Features.RollingWindows,
		Holidays:       s.calendar,
		NullPolicy:     feature.NullPolicy(s.cfg.Features.NullPolicy),
		Incomplete:     feature.IncompletePolicy(s.cfg.Features.IncompletePolicy),
		HourEncoding:   feature.HourEncoding(s.cfg.Features.HourEncoding),
		Location:       s.loc,
		Weather:        weather,
	}
}
