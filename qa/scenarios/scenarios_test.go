package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestParseTime(t *testing.T) {
	if _, err := parseTime("2024-03-04"); err != nil {
		t.Fatalf("date-only: %v", err)
	}
	ts, err := parseTime("2024-03-04T05:00:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if ts.Hour() != 5 {
		t.Fatalf("expected hour 5, got %d", ts.Hour())
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStationObservations(t *testing.T) {
	def := StationDef{
		ID:      "7000",
		Start:   "2024-03-04",
		Weeks:   1,
		Base:    2,
		Missing: []string{"2024-03-04T03:00:00Z"},
	}
	obs, err := def.Observations()
	if err != nil {
		t.Fatal(err)
	}
	if len(obs) != 168 {
		t.Fatalf("expected 168 rows, got %d", len(obs))
	}
	if obs[3].Demand != nil {
		t.Fatal("hour 3 should be missing")
	}
	if obs[5].Demand == nil || *obs[5].Demand != 7 {
		t.Fatal("unexpected demand at hour 5")
	}
}
