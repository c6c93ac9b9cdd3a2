package results

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/runstore"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
)

func seededStore() *runstore.MemoryStore {
	store := runstore.NewMemoryStore()
	store.Set(runstore.RunResult{
		RunID:   "run-1",
		Origin:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Horizon: 2,
		Outcomes: []train.TrainOutcome{
			{StationID: "7000", ModelID: "seasonal_naive:7000", Rows: 504},
			{StationID: "7001", ModelID: "seasonal_naive:7001", Rows: 504},
		},
		Forecasts: []model.ForecastRow{
			{StationID: "7000", Timestamp: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), Yhat: 2, HorizonStep: 1, ModelID: "seasonal_naive:7000"},
			{StationID: "7000", Timestamp: time.Date(2024, 7, 1, 1, 0, 0, 0, time.UTC), Yhat: 3, HorizonStep: 2, ModelID: "seasonal_naive:7000"},
			{StationID: "7001", Timestamp: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), Yhat: 1, HorizonStep: 1, ModelID: "seasonal_naive:7001"},
		},
		Evaluations: []model.EvaluationRecord{
			{StationID: "7000", MAE: model.Float(0.5), NObservations: 24},
		},
		Stations: []model.StationInfo{
			{StationID: "7000", Name: "Fort York Blvd / Capreol Ct", Capacity: 35},
		},
	})
	return store
}

func TestRunEndpointBeforeFirstRun(t *testing.T) {
	h := NewHandler(runstore.NewMemoryStore())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/run", nil)
	h.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rr.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] == "" {
		t.Fatalf("expected error body, got %s", rr.Body.String())
	}
}

func TestRunEndpointReturnsSummary(t *testing.T) {
	h := NewHandler(seededStore())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/run", nil)
	h.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out runstore.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunID != "run-1" || out.Trained != 2 || out.Forecasts != 3 {
		t.Fatalf("unexpected summary %+v", out)
	}
}

func TestForecastEndpointFiltersByStation(t *testing.T) {
	h := NewHandler(seededStore())

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecasts", nil))
	var all []model.ForecastRow
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}

	rr = httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecasts?station=7000", nil))
	var filtered []model.ForecastRow
	if err := json.Unmarshal(rr.Body.Bytes(), &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(filtered) != 2 || filtered[0].HorizonStep != 1 || filtered[1].HorizonStep != 2 {
		t.Fatalf("unexpected filtered rows %+v", filtered)
	}
}

func TestForecastEndpointUnknownStationIsEmpty(t *testing.T) {
	h := NewHandler(seededStore())
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecasts?station=9999", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if rr.Body.String() != "[]\n" {
		t.Fatalf("expected empty array got %s", rr.Body.String())
	}
}

func TestStationForecastPathParam(t *testing.T) {
	h := NewHandler(seededStore())

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecasts/7001", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var rows []model.ForecastRow
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].StationID != "7001" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	rr = httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/forecasts/9999", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestEvaluationsEndpoint(t *testing.T) {
	h := NewHandler(seededStore())
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/evaluations", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var recs []model.EvaluationRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].StationID != "7000" || recs[0].MAE == nil || *recs[0].MAE != 0.5 {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestStationsEndpoint(t *testing.T) {
	h := NewHandler(seededStore())
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/api/stations", nil))
	var stations []model.StationInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &stations); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stations) != 1 || stations[0].Capacity != 35 {
		t.Fatalf("unexpected stations %+v", stations)
	}
}

func TestHealthzAlwaysServes(t *testing.T) {
	store := runstore.NewMemoryStore()
	h := NewHandler(store)

	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["run_loaded"] != false {
		t.Fatalf("expected run_loaded=false, got %v", out)
	}

	store.Set(runstore.RunResult{RunID: "run-1"})
	rr = httptest.NewRecorder()
	h.Router().ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["run_loaded"] != true {
		t.Fatalf("expected run_loaded=true, got %v", out)
	}
}
