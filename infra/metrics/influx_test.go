package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

func captureServer(t *testing.T, bodies *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*bodies = append(*bodies, strings.TrimSpace(string(data)))
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:     "run-1",
		Status:    "ok",
		Stations:  3,
		Trained:   2,
		Skipped:   1,
		Forecasts: 48,
		Duration:  1500 * time.Millisecond,
		Time:      now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record run: %v", err)
	}

	p := write.NewPointWithMeasurement("pipeline_run").
		AddTag("run_id", "run-1").
		AddTag("status", "ok").
		AddField("stations", 3).
		AddField("trained", 2).
		AddField("skipped", 1).
		AddField("forecast_rows", 48).
		AddField("duration_s", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordStationOutcome(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.StationOutcomeEvent{
		StationID: "7000",
		Family:    "seasonal_naive",
		Stage:     "train",
		Rows:      504,
		Trained:   true,
		Time:      now,
	}
	if err := sink.RecordStationOutcome(ev); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	p := write.NewPointWithMeasurement("station_outcome").
		AddTag("station_id", "7000").
		AddTag("stage", "train").
		AddTag("trained", "true").
		AddTag("family", "seasonal_naive").
		AddField("rows", 504).
		AddField("reason", "").
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(bodies) != 1 || bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordForecasts(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	rows := []model.ForecastRow{
		{StationID: "7000", ModelID: "m1", Timestamp: now, Yhat: 4.5678, HorizonStep: 1},
		{StationID: "7000", ModelID: "m1", Timestamp: now.Add(time.Hour), Yhat: 5, HorizonStep: 2},
	}
	if err := sink.RecordForecasts(rows); err != nil {
		t.Fatalf("record forecasts: %v", err)
	}

	var expected []string
	for i, r := range rows {
		yhat := r.Yhat
		if i == 0 {
			yhat = 4.568
		}
		p := write.NewPointWithMeasurement("forecast").
			AddTag("station_id", r.StationID).
			AddTag("model_id", r.ModelID).
			AddField("yhat", yhat).
			AddField("horizon_step", r.HorizonStep).
			SetTime(r.Timestamp)
		expected = append(expected, strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond)))
	}
	if len(bodies) != 2 || bodies[0] != expected[0] || bodies[1] != expected[1] {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordEvaluationsOmitsUndefinedMetrics(t *testing.T) {
	var bodies []string
	srv := captureServer(t, &bodies)
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	recs := []model.EvaluationRecord{
		{StationID: "7000", MAE: model.Float(1.25), NObservations: 10, NZeroActuals: 10},
	}
	if err := sink.RecordEvaluations(recs); err != nil {
		t.Fatalf("record evaluations: %v", err)
	}

	if len(bodies) != 1 {
		t.Fatalf("expected one point, got %#v", bodies)
	}
	body := bodies[0]
	if !strings.HasPrefix(body, "evaluation,station_id=7000 ") {
		t.Errorf("unexpected measurement or tags: %s", body)
	}
	if !strings.Contains(body, "mae=1.25") {
		t.Errorf("mae missing from point: %s", body)
	}
	if strings.Contains(body, "mape=") {
		t.Errorf("undefined mape written to point: %s", body)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestNewInfluxSinkWithFallbackHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"influxdb","status":"pass"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL, "tok", "org", "bucket")
	is, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink when health check passes")
	}
	is.Close()
}
