package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

var start = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func actualsGrid(t *testing.T, stations map[string][]*float64) *timeseries.Grid {
	t.Helper()
	var obs []model.Observation
	for id, values := range stations {
		for i, v := range values {
			obs = append(obs, model.Observation{
				StationID: id,
				Timestamp: start.Add(time.Duration(i) * time.Hour),
				Demand:    v,
			})
		}
	}
	g, err := timeseries.Load(obs, timeseries.LoadConfig{})
	if err != nil {
		t.Fatalf("load grid: %v", err)
	}
	return g
}

func forecastRows(station string, yhats ...float64) []model.ForecastRow {
	rows := make([]model.ForecastRow, len(yhats))
	for i, y := range yhats {
		rows[i] = model.ForecastRow{
			StationID:   station,
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Yhat:        y,
			HorizonStep: i + 1,
		}
	}
	return rows
}

func repeat(v float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		out[i] = model.Float(v)
	}
	return out
}

func fvals(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEvaluateCountWeightedAggregate(t *testing.T) {
	// Station X: 10 rows with absolute error 2. Station Y: 30 rows with
	// absolute error 4. The aggregate must weight by row count: 3.5, not
	// the unweighted mean 3.0.
	g := actualsGrid(t, map[string][]*float64{
		"X": repeat(10, 10),
		"Y": repeat(10, 30),
	})
	rows := append(forecastRows("X", fvals(12, 10)...), forecastRows("Y", fvals(14, 30)...)...)

	recs := Evaluate(rows, g)
	if len(recs) != 3 {
		t.Fatalf("expected X, Y and ALL records, got %d", len(recs))
	}
	if recs[0].StationID != "X" || recs[1].StationID != "Y" || recs[2].StationID != AllStations {
		t.Fatalf("record order: %+v", recs)
	}
	if *recs[0].MAE != 2 || *recs[1].MAE != 4 {
		t.Fatalf("per-station MAE: %v, %v", *recs[0].MAE, *recs[1].MAE)
	}
	all := recs[2]
	if all.NObservations != 40 {
		t.Fatalf("ALL n_observations %d, want 40", all.NObservations)
	}
	if math.Abs(*all.MAE-3.5) > 1e-12 {
		t.Fatalf("weighted MAE %v, want 3.5", *all.MAE)
	}
	// MAPE percentages: 20 on X, 40 on Y, weighted 35.
	if math.Abs(*all.MAPE-35) > 1e-9 {
		t.Fatalf("weighted MAPE %v, want 35", *all.MAPE)
	}
}

func TestEvaluateSkipsZeroActualsInMape(t *testing.T) {
	g := actualsGrid(t, map[string][]*float64{
		"A": {model.Float(0), model.Float(0), model.Float(5)},
	})
	recs := Evaluate(forecastRows("A", 1, 1, 6), g)
	rec := recs[0]
	if rec.NObservations != 3 || rec.NZeroActuals != 2 {
		t.Fatalf("counts: %+v", rec)
	}
	if math.Abs(*rec.MAE-1) > 1e-12 {
		t.Fatalf("MAE %v, want 1", *rec.MAE)
	}
	// Only the third row scores MAPE: |5-6|/5 = 20%.
	if math.Abs(*rec.MAPE-20) > 1e-9 {
		t.Fatalf("MAPE %v, want 20", *rec.MAPE)
	}
}

func TestEvaluateAllZeroActualsIsNotNoData(t *testing.T) {
	g := actualsGrid(t, map[string][]*float64{
		"Z": {model.Float(0), model.Float(0)},
		"M": {nil, nil},
	})
	rows := append(forecastRows("Z", 1, 2), forecastRows("M", 1, 2)...)
	recs := Evaluate(rows, g)

	var zero, missing model.EvaluationRecord
	for _, r := range recs {
		switch r.StationID {
		case "Z":
			zero = r
		case "M":
			missing = r
		}
	}
	// All-zero actuals: MAE defined, MAPE undefined.
	if zero.MAE == nil || zero.MAPE != nil {
		t.Fatalf("all-zero station: %+v", zero)
	}
	if zero.NObservations != 2 || zero.NZeroActuals != 2 {
		t.Fatalf("all-zero counts: %+v", zero)
	}
	// No usable actuals at all: nothing defined, only misses counted.
	if missing.MAE != nil || missing.MAPE != nil {
		t.Fatalf("no-data station: %+v", missing)
	}
	if missing.NObservations != 0 || missing.NMissingActuals != 2 {
		t.Fatalf("no-data counts: %+v", missing)
	}
}

func TestEvaluateCountsMissingActuals(t *testing.T) {
	g := actualsGrid(t, map[string][]*float64{
		"A": {model.Float(4), nil, model.Float(4)},
	})
	rows := forecastRows("A", 5, 5, 5)
	// A fourth forecast hour past the grid span is also a miss.
	rows = append(rows, model.ForecastRow{
		StationID: "A",
		Timestamp: start.Add(100 * time.Hour),
		Yhat:      5,
	})
	recs := Evaluate(rows, g)
	rec := recs[0]
	if rec.NObservations != 2 || rec.NMissingActuals != 2 {
		t.Fatalf("counts: %+v", rec)
	}
	if math.Abs(*rec.MAE-1) > 1e-12 {
		t.Fatalf("MAE %v, want 1", *rec.MAE)
	}
}

func TestEvaluateHandlesUnknownStationAndEmptyInput(t *testing.T) {
	if recs := Evaluate(nil, nil); recs != nil {
		t.Fatalf("no forecasts must evaluate to nothing, got %+v", recs)
	}
	g := actualsGrid(t, map[string][]*float64{"A": repeat(3, 2)})
	recs := Evaluate(forecastRows("GHOST", 1, 2), g)
	if len(recs) != 2 {
		t.Fatalf("expected GHOST and ALL records, got %+v", recs)
	}
	if recs[0].NMissingActuals != 2 || recs[0].MAE != nil {
		t.Fatalf("unknown station must count misses: %+v", recs[0])
	}
	if recs[1].MAE != nil || recs[1].NMissingActuals != 2 {
		t.Fatalf("ALL record over misses only: %+v", recs[1])
	}
}
