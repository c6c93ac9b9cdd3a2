package runstore

import (
	"sync"
	"testing"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/forecast"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/train"
)

func TestMemoryStore_LatestBeforeFirstRun(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Latest(); ok {
		t.Fatalf("empty store reported a run")
	}
}

func TestMemoryStore_SetAndLatest(t *testing.T) {
	s := NewMemoryStore()
	s.Set(RunResult{RunID: "r1"})
	s.Set(RunResult{RunID: "r2"})
	got, ok := s.Latest()
	if !ok || got.RunID != "r2" {
		t.Fatalf("latest = %#v, ok = %v", got, ok)
	}
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(RunResult{RunID: "r"})
				if r, ok := s.Latest(); ok && r.RunID != "r" {
					t.Errorf("unexpected run %q", r.RunID)
				}
			}
		}()
	}
	wg.Wait()
}

func TestRunResult_StationForecasts(t *testing.T) {
	origin := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	r := RunResult{Forecasts: []model.ForecastRow{
		{StationID: "7000", Timestamp: origin.Add(time.Hour), HorizonStep: 1},
		{StationID: "7000", Timestamp: origin.Add(2 * time.Hour), HorizonStep: 2},
		{StationID: "7001", Timestamp: origin.Add(time.Hour), HorizonStep: 1},
	}}
	rows := r.StationForecasts("7000")
	if len(rows) != 2 || rows[0].HorizonStep != 1 || rows[1].HorizonStep != 2 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
	if got := r.StationForecasts("9999"); got != nil {
		t.Fatalf("unknown station returned rows: %#v", got)
	}
}

func TestRunResult_SummaryCounts(t *testing.T) {
	r := RunResult{
		RunID:   "r1",
		Horizon: 24,
		Load:    timeseries.LoadReport{Stations: 3},
		Outcomes: []train.TrainOutcome{
			{StationID: "7000", ModelID: "m1"},
			{StationID: "7001", ModelID: "m2"},
			{StationID: "7002", Reason: "insufficient history"},
		},
		Forecasts: make([]model.ForecastRow, 48),
		Skipped:   []forecast.SkippedStation{{StationID: "7003", Reason: "no fitted model"}},
	}
	sum := r.Summary()
	if sum.Stations != 3 || sum.Trained != 2 || sum.Skipped != 2 || sum.Forecasts != 48 {
		t.Fatalf("unexpected summary: %#v", sum)
	}
	if len(sum.Outcomes) != 3 || len(sum.SkippedList) != 1 {
		t.Fatalf("summary lost detail: %#v", sum)
	}
}
