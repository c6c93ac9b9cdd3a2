package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// DefaultGBFSStationURL is the Toronto station_information feed.
const DefaultGBFSStationURL = "https://tor.publicbikesystem.net/ube/gbfs/v1/en/station_information"

// StationDirectory resolves station metadata for exports and the API.
type StationDirectory interface {
	Stations(ctx context.Context) ([]model.StationInfo, error)
}

// GBFSDirectory reads a GBFS station_information feed.
type GBFSDirectory struct {
	url    string
	client *http.Client
}

func NewGBFSDirectory(url string) *GBFSDirectory {
	if url == "" {
		url = DefaultGBFSStationURL
	}
	return &GBFSDirectory{url: url, client: &http.Client{Timeout: 15 * time.Second}}
}

type gbfsStationInformation struct {
	Data struct {
		Stations []model.StationInfo `json:"stations"`
	} `json:"data"`
}

func (d *GBFSDirectory) Stations(ctx context.Context) ([]model.StationInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("station_information request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var feed gbfsStationInformation
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode station_information: %w", err)
	}
	return feed.Data.Stations, nil
}
