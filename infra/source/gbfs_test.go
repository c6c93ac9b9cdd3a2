package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGBFSDirectoryStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"last_updated":1718000000,"ttl":30,"data":{"stations":[
			{"station_id":"7000","name":"Fort York  Blvd / Capreol Ct","capacity":35,"lat":43.639832,"lon":-79.395954},
			{"station_id":"7001","name":"Wellesley Station Green P","capacity":23,"lat":43.664964,"lon":-79.383616}
		]}}`)
	}))
	defer srv.Close()

	dir := NewGBFSDirectory(srv.URL)
	stations, err := dir.Stations(context.Background())
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	if stations[0].StationID != "7000" || stations[0].Capacity != 35 {
		t.Errorf("unexpected station: %#v", stations[0])
	}
	if stations[1].Name != "Wellesley Station Green P" {
		t.Errorf("unexpected station: %#v", stations[1])
	}
}

func TestGBFSDirectoryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewGBFSDirectory(srv.URL).Stations(context.Background()); err == nil {
		t.Fatalf("expected error on bad gateway")
	}
}
