package source

import (
	"context"
	"testing"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

func TestMemorySource(t *testing.T) {
	ts := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	src := Memory{Rows: []model.Observation{{StationID: "7000", Timestamp: ts, Demand: model.Float(4)}}}
	obs, err := src.Observations(context.Background())
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	if len(obs) != 1 || obs[0].StationID != "7000" {
		t.Fatalf("unexpected observations: %#v", obs)
	}
}

func TestNewSourceFromConfig(t *testing.T) {
	src, err := NewSource(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": t.TempDir()}})
	if err != nil {
		t.Fatalf("create csv source: %v", err)
	}
	if _, ok := src.(*CSVSource); !ok {
		t.Fatalf("expected CSVSource, got %T", src)
	}

	if _, err := NewSource(factory.ModuleConfig{Type: "memory"}); err != nil {
		t.Fatalf("create memory source: %v", err)
	}

	if _, err := NewSource(factory.ModuleConfig{Type: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown source type")
	}

	_, err = NewSource(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": t.TempDir(), "timezone": "Mars/Olympus"}})
	if err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
