package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWeatherClientChunksLongRanges(t *testing.T) {
	var starts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		starts = append(starts, r.URL.Query().Get("start"))
		fmt.Fprintf(w, `{"data":[{"time":"%s 00:00:00","temp":5.5,"prcp":0.2,"wspd":10,"rhum":80}]}`,
			r.URL.Query().Get("start"))
	}))
	defer srv.Close()

	c := NewWeatherClient(WeatherConfig{URL: srv.URL, Station: "71508"})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) // 65 days, 3 chunks
	rows, err := c.Hourly(context.Background(), start, end)
	if err != nil {
		t.Fatalf("hourly: %v", err)
	}
	if len(starts) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(starts), starts)
	}
	if starts[0] != "2024-01-01" || starts[1] != "2024-01-31" || starts[2] != "2024-03-01" {
		t.Errorf("unexpected chunk starts: %v", starts)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].TempC != 5.5 || rows[0].PrecipMM != 0.2 || rows[0].WindKPH != 10 || rows[0].Humidity != 80 {
		t.Errorf("unexpected first row: %#v", rows[0])
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !rows[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", rows[0].Timestamp, want)
	}
}

func TestWeatherClientRetriesThrottledRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[{"time":"2024-01-01 00:00:00","temp":1,"rhum":70}]}`)
	}))
	defer srv.Close()

	c := NewWeatherClient(WeatherConfig{URL: srv.URL})
	c.backoff = time.Millisecond
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := c.Hourly(context.Background(), day, day)
	if err != nil {
		t.Fatalf("hourly: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a retry, got %d calls", calls.Load())
	}
	if len(rows) != 1 || rows[0].PrecipMM != 0 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestWeatherClientFailsWhenEveryChunkFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWeatherClient(WeatherConfig{URL: srv.URL})
	c.backoff = time.Millisecond
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := c.Hourly(context.Background(), day, day); err == nil {
		t.Fatalf("expected error when every chunk fails")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestWeatherClientRejectsInvertedRange(t *testing.T) {
	c := NewWeatherClient(WeatherConfig{})
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := c.Hourly(context.Background(), end.AddDate(0, 0, 5), end); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestWeatherConfigValidate(t *testing.T) {
	if err := (WeatherConfig{}).Validate(); err != nil {
		t.Fatalf("disabled source should validate: %v", err)
	}
	if err := (WeatherConfig{Enabled: true}).Validate(); err == nil {
		t.Fatalf("enabled source without an api key must fail")
	}
	if err := (WeatherConfig{Enabled: true, APIKey: "k"}).Validate(); err != nil {
		t.Fatalf("enabled source with a key: %v", err)
	}
}
