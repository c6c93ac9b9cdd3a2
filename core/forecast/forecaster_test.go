package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// multiGrid builds a grid with the same constant 336 hour series for every
// listed station.
func multiGrid(t *testing.T, level float64, stations ...string) *timeseries.Grid {
	t.Helper()
	var obs []model.Observation
	for _, id := range stations {
		for i := 0; i < 336; i++ {
			obs = append(obs, model.Observation{
				StationID: id,
				Timestamp: t0.Add(time.Duration(i) * time.Hour),
				Demand:    model.Float(level),
			})
		}
	}
	g, err := timeseries.Load(obs, timeseries.LoadConfig{})
	if err != nil {
		t.Fatalf("load grid: %v", err)
	}
	return g
}

func TestForecastSkipsUnmodeledStations(t *testing.T) {
	g := multiGrid(t, 5, "A", "B", "C")
	origin := t0.Add(335 * time.Hour)
	set := ModelSet{Stations: map[string]*Fitted{
		"A": fitNaive(t, StationScope("A"), Window{}),
		"B": fitNaive(t, StationScope("B"), Window{}),
	}}

	rows, skipped, err := Forecaster{}.Forecast(set, g, origin, 24)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(rows) != 2*24 {
		t.Fatalf("expected rows for A and B only, got %d rows", len(rows))
	}
	for _, r := range rows {
		if r.StationID == "C" {
			t.Fatalf("station C has no model and must not be forecast")
		}
	}
	if len(skipped) != 1 || skipped[0].StationID != "C" {
		t.Fatalf("expected exactly station C skipped, got %+v", skipped)
	}
	if !errors.Is(skipped[0].Err, ErrNotFitted) {
		t.Fatalf("skip cause: got %v", skipped[0].Err)
	}
	if skipped[0].Reason == "" {
		t.Fatalf("skip reason must be populated")
	}
}

func TestForecastRowOrdering(t *testing.T) {
	g := multiGrid(t, 5, "B", "A")
	origin := t0.Add(335 * time.Hour)
	fa := fitNaive(t, StationScope("A"), Window{})
	fb := fitNaive(t, StationScope("B"), Window{})
	set := ModelSet{Stations: map[string]*Fitted{"A": fa, "B": fb}}

	rows, skipped, err := Forecaster{}.Forecast(set, g, origin, 5)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", skipped)
	}
	if len(rows) != 10 {
		t.Fatalf("got %d rows, want 10", len(rows))
	}
	for i, r := range rows {
		wantStation, wantStep := "A", i+1
		wantID := fa.ID
		if i >= 5 {
			wantStation, wantStep = "B", i-4
			wantID = fb.ID
		}
		if r.StationID != wantStation || r.HorizonStep != wantStep || r.ModelID != wantID {
			t.Fatalf("row %d = %+v, want station %s step %d", i, r, wantStation, wantStep)
		}
		wantTS := origin.Add(time.Duration(wantStep) * time.Hour)
		if !r.Timestamp.Equal(wantTS) {
			t.Fatalf("row %d timestamp %v, want %v", i, r.Timestamp, wantTS)
		}
		if r.Yhat != 5 {
			t.Fatalf("row %d yhat %g, want 5", i, r.Yhat)
		}
	}
}

func TestForecastGlobalModelServesAllStations(t *testing.T) {
	g := multiGrid(t, 3, "A", "B", "C")
	origin := t0.Add(335 * time.Hour)
	set := ModelSet{Global: fitNaive(t, GlobalScope(), Window{})}

	rows, skipped, err := Forecaster{}.Forecast(set, g, origin, 4)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", skipped)
	}
	if len(rows) != 3*4 {
		t.Fatalf("got %d rows, want 12", len(rows))
	}
	for _, r := range rows {
		if r.ModelID != set.Global.ID {
			t.Fatalf("row %+v not served by the global model", r)
		}
	}
}

func TestForecastReportsModelWithoutHistory(t *testing.T) {
	g := multiGrid(t, 5, "A")
	origin := t0.Add(335 * time.Hour)
	set := ModelSet{Stations: map[string]*Fitted{
		"A": fitNaive(t, StationScope("A"), Window{}),
		"Z": fitNaive(t, StationScope("Z"), Window{}),
	}}

	rows, skipped, err := Forecaster{}.Forecast(set, g, origin, 6)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("station A should still be forecast, got %d rows", len(rows))
	}
	if len(skipped) != 1 || skipped[0].StationID != "Z" {
		t.Fatalf("expected station Z skipped, got %+v", skipped)
	}
}

func TestForecastSkipsUnknownFamily(t *testing.T) {
	g := multiGrid(t, 5, "A", "B")
	origin := t0.Add(335 * time.Hour)
	set := ModelSet{Stations: map[string]*Fitted{
		"A": fitNaive(t, StationScope("A"), Window{}),
		"B": {ID: "bogus", Family: "holt_winters", Scope: StationScope("B")},
	}}

	rows, skipped, err := Forecaster{}.Forecast(set, g, origin, 3)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("station A should still be forecast, got %d rows", len(rows))
	}
	if len(skipped) != 1 || skipped[0].StationID != "B" {
		t.Fatalf("expected station B skipped, got %+v", skipped)
	}
}

func TestForecastHorizonValidation(t *testing.T) {
	g := multiGrid(t, 5, "A")
	_, _, err := Forecaster{}.Forecast(ModelSet{}, g, t0, 0)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("zero horizon: got %v", err)
	}
}

func TestDecodeRejectsCorruptBundles(t *testing.T) {
	if _, err := Decode([]byte(`{"id":"x","family":"holt_winters"}`)); err == nil {
		t.Fatalf("unknown family must not decode")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("malformed payload must not decode")
	}
	if _, err := Decode([]byte(`{"id":"x","family":"seasonal_regression","schema":{"hour_encoding":"spline","lags":[24]}}`)); err == nil {
		t.Fatalf("invalid schema must not decode")
	}
}
