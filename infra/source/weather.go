package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	infralog "github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

// Meteostat defaults. The hourly endpoint serves at most 30 days per
// request, so longer ranges are fetched in chunks.
const (
	DefaultWeatherURL     = "https://meteostat.p.rapidapi.com/stations/hourly"
	DefaultWeatherHost    = "meteostat.p.rapidapi.com"
	DefaultWeatherStation = "71508" // Toronto City Centre
	weatherChunkDays      = 30
)

// WeatherConfig configures the hourly weather client.
type WeatherConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Host    string `json:"host"`
	Station string `json:"station"`
	APIKey  string `json:"api_key"`
}

// Validate checks that an enabled weather source can authenticate. URL,
// host and station fall back to the Meteostat defaults.
func (c WeatherConfig) Validate() error {
	if c.Enabled && c.APIKey == "" {
		return model.NewConfigError("weather.api_key", "required when weather is enabled")
	}
	return nil
}

// WeatherClient fetches hourly weather observations for the configured
// station, retrying throttled and failing requests with linear backoff.
type WeatherClient struct {
	url     string
	host    string
	station string
	apiKey  string
	client  *http.Client
	log     logger.Logger
	retries int
	backoff time.Duration
}

func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	if cfg.URL == "" {
		cfg.URL = DefaultWeatherURL
	}
	if cfg.Host == "" {
		cfg.Host = DefaultWeatherHost
	}
	if cfg.Station == "" {
		cfg.Station = DefaultWeatherStation
	}
	return &WeatherClient{
		url:     cfg.URL,
		host:    cfg.Host,
		station: cfg.Station,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     infralog.New("weather"),
		retries: 3,
		backoff: time.Second,
	}
}

type weatherPayload struct {
	Data []struct {
		Time string   `json:"time"`
		Temp *float64 `json:"temp"`
		Prcp *float64 `json:"prcp"`
		Wspd *float64 `json:"wspd"`
		Rhum *float64 `json:"rhum"`
	} `json:"data"`
}

// Hourly fetches the hourly observations covering [start, end]. Chunks
// that still fail after retries are skipped with a warning; the model
// degrades to forward-filled weather rather than losing the run.
func (w *WeatherClient) Hourly(ctx context.Context, start, end time.Time) ([]model.WeatherObservation, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("weather range end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	var out []model.WeatherObservation
	failed := 0
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, weatherChunkDays) {
		chunkEnd := cur.AddDate(0, 0, weatherChunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		rows, err := w.fetchChunk(ctx, cur, chunkEnd)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.log.Warnf("weather chunk %s..%s failed: %v", cur.Format("2006-01-02"), chunkEnd.Format("2006-01-02"), err)
			failed++
			continue
		}
		out = append(out, rows...)
	}
	if failed > 0 && len(out) == 0 {
		return nil, fmt.Errorf("all %d weather chunks failed", failed)
	}
	return out, nil
}

func (w *WeatherClient) fetchChunk(ctx context.Context, start, end time.Time) ([]model.WeatherObservation, error) {
	var lastErr error
	for attempt := 1; attempt <= w.retries; attempt++ {
		payload, retryable, err := w.get(ctx, start, end)
		if err == nil {
			return w.convert(payload), nil
		}
		lastErr = err
		if !retryable || attempt == w.retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (w *WeatherClient) get(ctx context.Context, start, end time.Time) (*weatherPayload, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("station", w.station)
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	req.URL.RawQuery = q.Encode()
	if w.apiKey != "" {
		req.Header.Set("x-rapidapi-host", w.host)
		req.Header.Set("x-rapidapi-key", w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var payload weatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode weather response: %w", err)
	}
	return &payload, false, nil
}

func (w *WeatherClient) convert(payload *weatherPayload) []model.WeatherObservation {
	var rows []model.WeatherObservation
	for _, r := range payload.Data {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", r.Time, time.UTC)
		if err != nil {
			continue
		}
		rows = append(rows, model.WeatherObservation{
			Timestamp: ts,
			TempC:     deref(r.Temp),
			PrecipMM:  deref(r.Prcp),
			WindKPH:   deref(r.Wspd),
			Humidity:  deref(r.Rhum),
		})
	}
	return rows
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
