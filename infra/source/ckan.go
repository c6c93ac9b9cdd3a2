package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	infralog "github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

// Toronto open-data defaults. Any CKAN instance with the standard action
// API works.
const (
	DefaultCKANBaseURL   = "https://ckan0.cf.opendata.inter.prod-toronto.ca"
	DefaultCKANPackageID = "bike-share-toronto-ridership-data"
)

// CKANConfig configures the open-data ridership source.
type CKANConfig struct {
	BaseURL   string `json:"base_url"`
	PackageID string `json:"package_id"`
	Dir       string `json:"dir"`
	Direction string `json:"direction"`
	Timezone  string `json:"timezone"`
	// Years restricts downloads to resources whose name mentions one of
	// the years. Empty downloads every file resource.
	Years []int `json:"years"`
}

// CKANSource downloads ridership archives from a CKAN portal into a local
// directory and reads them through the CSV source. Files already on disk
// are not fetched again.
type CKANSource struct {
	baseURL   string
	packageID string
	dir       string
	years     []int
	client    *http.Client
	csv       *CSVSource
	log       logger.Logger
}

// NewCKANSource validates the config and prepares the download directory.
func NewCKANSource(cfg CKANConfig) (*CKANSource, error) {
	if cfg.Dir == "" {
		return nil, model.NewConfigError("source.dir", "download directory is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCKANBaseURL
	}
	if cfg.PackageID == "" {
		cfg.PackageID = DefaultCKANPackageID
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, model.NewConfigError("source.timezone", err.Error())
		}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	csvSrc, err := NewCSVSource(cfg.Dir, cfg.Direction, loc)
	if err != nil {
		return nil, err
	}
	return &CKANSource{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		packageID: cfg.PackageID,
		dir:       cfg.Dir,
		years:     cfg.Years,
		client:    &http.Client{Timeout: 5 * time.Minute},
		csv:       csvSrc,
		log:       infralog.New("ckan-source"),
	}, nil
}

type ckanResource struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Format          string `json:"format"`
	DatastoreActive bool   `json:"datastore_active"`
}

type ckanPackage struct {
	Success bool `json:"success"`
	Result  struct {
		Resources []ckanResource `json:"resources"`
	} `json:"result"`
}

// Fetch lists the package resources and downloads every file resource not
// yet present in the data directory. Single failed downloads are logged
// and skipped so one broken resource does not lose the rest.
func (s *CKANSource) Fetch(ctx context.Context) error {
	pkg, err := s.packageShow(ctx)
	if err != nil {
		return err
	}
	for _, res := range pkg.Result.Resources {
		if res.DatastoreActive || res.URL == "" {
			continue
		}
		if !s.wantResource(res) {
			continue
		}
		name := filenameFromURL(res.URL, res.ID)
		target := filepath.Join(s.dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := s.download(ctx, res.URL, target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warnf("could not download %s: %v", name, err)
			continue
		}
		s.log.Infof("downloaded %s", name)
	}
	return nil
}

// Observations fetches missing archives, then aggregates the directory.
// A failed listing degrades to whatever is already cached on disk.
func (s *CKANSource) Observations(ctx context.Context) ([]model.Observation, error) {
	if err := s.Fetch(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		files, listErr := listCSVs(s.dir)
		if listErr != nil || len(files) == 0 {
			return nil, err
		}
		s.log.Warnf("resource listing failed, serving %d cached files: %v", len(files), err)
	}
	return s.csv.Observations(ctx)
}

func (s *CKANSource) packageShow(ctx context.Context) (*ckanPackage, error) {
	u := s.baseURL + "/api/3/action/package_show?id=" + url.QueryEscape(s.packageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("package_show request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("package_show status %d: %s", resp.StatusCode, body)
	}
	var pkg ckanPackage
	if err := json.NewDecoder(resp.Body).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("decode package_show: %w", err)
	}
	if !pkg.Success {
		return nil, fmt.Errorf("package_show reported failure for %q", s.packageID)
	}
	return &pkg, nil
}

// wantResource keeps zip and csv resources, filtered by year when set.
func (s *CKANSource) wantResource(res ckanResource) bool {
	name := filenameFromURL(res.URL, res.ID)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".csv":
	default:
		return false
	}
	if len(s.years) == 0 {
		return true
	}
	probe := strings.ToLower(res.Name + " " + name)
	for _, y := range s.years {
		if strings.Contains(probe, strconv.Itoa(y)) {
			return true
		}
	}
	return false
}

func (s *CKANSource) download(ctx context.Context, fileURL, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func filenameFromURL(fileURL, fallbackID string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return fallbackID + ".bin"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return fallbackID + ".bin"
	}
	return name
}
