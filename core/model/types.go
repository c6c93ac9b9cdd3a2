package model

import "time"

// Observation is the demand recorded for one station during one hour.
// Timestamps are hour-truncated and stored in UTC; sources convert from
// local wall-clock time before handing observations to the pipeline.
type Observation struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	// Demand is the trip count for the hour. nil means no data exists for
	// this station-hour, which is not the same as a count of zero.
	Demand *float64 `json:"demand"`
}

// Missing reports whether the observation carries no recorded demand.
func (o Observation) Missing() bool { return o.Demand == nil }

// Float returns a pointer to v, for building observations in place.
func Float(v float64) *float64 { return &v }

// ForecastRow is one predicted station-hour.
type ForecastRow struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Yhat        float64   `json:"yhat"`
	HorizonStep int       `json:"horizon_step"` // 1..H hours past the forecast origin
	ModelID     string    `json:"model_id"`
}

// EvaluationRecord holds accuracy metrics for one station over a held-out
// window. MAE and MAPE are nil when undefined: MAE when no forecast matched
// an actual, MAPE additionally when every matched actual was zero.
type EvaluationRecord struct {
	StationID       string   `json:"station_id"`
	MAE             *float64 `json:"mae"`
	MAPE            *float64 `json:"mape"`
	NObservations   int      `json:"n_observations"`
	NZeroActuals    int      `json:"n_zero_actuals"`
	NMissingActuals int      `json:"n_missing_actuals"`
}

// StationInfo describes one physical station from the GBFS directory.
type StationInfo struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Capacity  int     `json:"capacity"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// WeatherObservation is one hour of weather used for optional features.
type WeatherObservation struct {
	Timestamp time.Time `json:"timestamp"`
	TempC     float64   `json:"temp_c"`
	PrecipMM  float64   `json:"precip_mm"`
	WindKPH   float64   `json:"wind_kph"`
	Humidity  float64   `json:"rhum"`
}
