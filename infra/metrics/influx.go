package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

// InfluxSink writes pipeline runs, forecasts and evaluations to an
// InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes the run summary as one point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pipeline_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddField("stations", ev.Stations).
		AddField("trained", ev.Trained).
		AddField("skipped", ev.Skipped).
		AddField("forecast_rows", ev.Forecasts).
		AddField("duration_s", round3(ev.Duration.Seconds())).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStationOutcome writes one station's training outcome.
func (s *InfluxSink) RecordStationOutcome(ev coremetrics.StationOutcomeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("station_outcome").
		AddTag("station_id", ev.StationID).
		AddTag("stage", ev.Stage).
		AddTag("trained", strconv.FormatBool(ev.Trained))
	if ev.Family != "" {
		p = p.AddTag("family", ev.Family)
	}
	p = p.AddField("rows", ev.Rows).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordForecasts writes each forecast row as a point in the forecast
// measurement.
func (s *InfluxSink) RecordForecasts(rows []model.ForecastRow) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range rows {
		p := write.NewPointWithMeasurement("forecast").
			AddTag("station_id", r.StationID).
			AddTag("model_id", r.ModelID).
			AddField("yhat", round3(r.Yhat)).
			AddField("horizon_step", r.HorizonStep).
			SetTime(r.Timestamp)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordEvaluations writes one point per evaluation record. Undefined
// metrics are left out of the point rather than written as zero.
func (s *InfluxSink) RecordEvaluations(recs []model.EvaluationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()
	for _, rec := range recs {
		p := write.NewPointWithMeasurement("evaluation").
			AddTag("station_id", rec.StationID).
			AddField("n_observations", rec.NObservations).
			AddField("n_zero_actuals", rec.NZeroActuals).
			AddField("n_missing_actuals", rec.NMissingActuals).
			SetTime(now)
		if rec.MAE != nil {
			p = p.AddField("mae", round3(*rec.MAE))
		}
		if rec.MAPE != nil {
			p = p.AddField("mape", round3(*rec.MAPE))
		}
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
