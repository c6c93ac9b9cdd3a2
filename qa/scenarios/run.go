package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/evaluate"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/forecast"
	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/internal/eventbus"
)

// RunScenario feeds the scenario's synthetic demand through load, features,
// training, forecasting and evaluation, then checks the outcome counts and
// accuracy against the scenario's expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.New(64)
	defer bus.Close()

	var obs []model.Observation
	for _, def := range sc.Stations {
		rows, err := def.Observations()
		if err != nil {
			t.Fatalf("station %s: %v", def.ID, err)
		}
		obs = append(obs, rows...)
	}
	grid, err := timeseries.Load(obs, timeseries.LoadConfig{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	horizon := sc.Horizon
	if horizon == 0 {
		horizon = 24
	}
	lags := sc.Lags
	if len(lags) == 0 {
		lags = []int{24, 168}
	}
	windows := sc.Windows
	if len(windows) == 0 {
		windows = []int{24, 168}
	}
	nullPolicy := feature.NullPolicy(sc.NullPolicy)
	if nullPolicy == "" {
		nullPolicy = feature.NullDrop
	}
	builder, err := feature.NewBuilder(feature.Config{
		Lags:           lags,
		RollingWindows: windows,
		NullPolicy:     nullPolicy,
		Incomplete:     feature.IncompleteDrop,
		HourEncoding:   feature.HourCyclical,
	})
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	rows := builder.Build(grid)

	tr, err := train.New(train.Config{
		Family:          sc.Train.Family,
		Scope:           sc.Train.Scope,
		MinTrainingRows: sc.Train.MinTrainingRows,
		HoldoutHours:    sc.Train.HoldoutHours,
	}, builder.Schema(), logger.NopLogger{}, bus)
	if err != nil {
		t.Fatalf("trainer: %v", err)
	}
	res, err := tr.Train(context.Background(), grid, rows)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	trained, skippedTrain := 0, 0
	for _, o := range res.Outcomes {
		ev := coremetrics.StationOutcomeEvent{
			StationID: o.StationID,
			ModelID:   o.ModelID,
			Family:    sc.Train.Family,
			Stage:     "train",
			Rows:      o.Rows,
			Trained:   o.Err == nil,
			Reason:    o.Reason,
			Time:      time.Now(),
		}
		if err := sink.RecordStationOutcome(ev); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
		if o.Err != nil {
			skippedTrain++
		} else {
			trained++
		}
	}

	origin := grid.MaxTimestamp()
	if sc.Train.HoldoutHours > 0 {
		origin = res.Cutoff.Add(-time.Hour)
	}
	var fc forecast.Forecaster
	preds, skipped, err := fc.Forecast(res.Models, grid, origin, horizon)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	var evals []model.EvaluationRecord
	if sc.Train.HoldoutHours > 0 {
		evals = evaluate.Evaluate(preds, grid)
	}
	if err := sink.RecordRun(coremetrics.RunEvent{
		RunID:     sc.Name,
		Status:    "ok",
		Stations:  len(grid.Stations()),
		Trained:   trained,
		Skipped:   skippedTrain + len(skipped),
		Forecasts: len(preds),
		Time:      time.Now(),
	}); err != nil {
		t.Fatalf("record run: %v", err)
	}

	if trained != sc.Expected.Trained {
		t.Errorf("scenario %s expected %d trained, got %d", sc.Name, sc.Expected.Trained, trained)
	}
	if skippedTrain != sc.Expected.SkippedTrain {
		t.Errorf("scenario %s expected %d train skips, got %d", sc.Name, sc.Expected.SkippedTrain, skippedTrain)
	}
	if len(skipped) != sc.Expected.SkippedForecast {
		t.Errorf("scenario %s expected %d forecast skips, got %d", sc.Name, sc.Expected.SkippedForecast, len(skipped))
	}
	if len(preds) != sc.Expected.ForecastRows {
		t.Errorf("scenario %s expected %d forecast rows, got %d", sc.Name, sc.Expected.ForecastRows, len(preds))
	}
	if len(evals) != sc.Expected.Evaluations {
		t.Errorf("scenario %s expected %d evaluations, got %d", sc.Name, sc.Expected.Evaluations, len(evals))
	}
	for _, e := range evals {
		if e.MAE == nil {
			t.Errorf("scenario %s station %s has undefined MAE", sc.Name, e.StationID)
			continue
		}
		if *e.MAE > sc.Expected.MaxMAE {
			t.Errorf("scenario %s station %s MAE %.6f above limit %.6f",
				sc.Name, e.StationID, *e.MAE, sc.Expected.MaxMAE)
		}
	}
}
