package source

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	infralog "github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

// Trip direction selects which end of a trip is counted as demand.
const (
	DirectionOrigins     = "origins"     // trip starts, demand for bikes
	DirectionCompletions = "completions" // trip ends, demand for docks
)

// timeLayouts covers the timestamp formats seen across ridership exports.
var timeLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// CSVSource aggregates trip-level ridership CSVs into hourly station
// counts. Zip archives in the directory are extracted first; each CSV's
// header decides which columns hold the trip time and station id, since
// the export schema changed over the years.
type CSVSource struct {
	dir       string
	loc       *time.Location
	direction string
	log       logger.Logger
}

// NewCSVSource builds a source over the given directory. Timestamps are
// parsed as wall-clock time in loc (UTC when nil) and normalized to UTC.
func NewCSVSource(dir, direction string, loc *time.Location) (*CSVSource, error) {
	if dir == "" {
		return nil, model.NewConfigError("source.dir", "directory is required")
	}
	switch direction {
	case "":
		direction = DirectionOrigins
	case DirectionOrigins, DirectionCompletions:
	default:
		return nil, model.NewConfigError("source.direction", fmt.Sprintf("unknown direction %q", direction))
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CSVSource{dir: dir, loc: loc, direction: direction, log: infralog.New("csv-source")}, nil
}

// Observations extracts pending archives, then reads every CSV in the
// directory and counts trips per station-hour. Unreadable files are
// skipped with a warning; an unreadable directory fails the load.
func (s *CSVSource) Observations(ctx context.Context) ([]model.Observation, error) {
	if err := extractArchives(s.dir, s.log); err != nil {
		return nil, err
	}
	files, err := listCSVs(s.dir)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[time.Time]float64)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.readFile(path, counts); err != nil {
			s.log.Warnf("skipping %s: %v", filepath.Base(path), err)
		}
	}

	var obs []model.Observation
	for station, hours := range counts {
		for ts, n := range hours {
			obs = append(obs, model.Observation{StationID: station, Timestamp: ts, Demand: model.Float(n)})
		}
	}
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].StationID != obs[j].StationID {
			return obs[i].StationID < obs[j].StationID
		}
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})
	return obs, nil
}

func (s *CSVSource) readFile(path string, counts map[string]map[time.Time]float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	timeCol := inferTimeColumn(header, s.direction)
	if timeCol < 0 {
		return fmt.Errorf("no %s time column in header %v", s.direction, header)
	}
	stationCol := inferStationColumn(header, s.direction)
	if stationCol < 0 {
		return fmt.Errorf("no %s station column in header %v", s.direction, header)
	}

	layout := 0
	bad := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			bad++
			continue
		}
		if timeCol >= len(rec) || stationCol >= len(rec) {
			bad++
			continue
		}
		station := strings.TrimSpace(rec[stationCol])
		ts, ok := parseTimestamp(rec[timeCol], s.loc, &layout)
		if station == "" || !ok {
			bad++
			continue
		}
		hour := timeseries.HourOf(ts)
		if counts[station] == nil {
			counts[station] = make(map[time.Time]float64)
		}
		counts[station][hour]++
	}
	if bad > 0 {
		s.log.Warnf("%s: skipped %d rows without a usable station or timestamp", filepath.Base(path), bad)
	}
	return nil
}

// inferTimeColumn finds the trip time column for the direction. Export
// schemas range from "Start Time" over "Trip Start Time" to "started_at".
func inferTimeColumn(header []string, direction string) int {
	want, alt := "start", "started_at"
	if direction == DirectionCompletions {
		want, alt = "end", "ended_at"
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(l, want) && (strings.Contains(l, "time") || strings.Contains(l, "date")) {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), alt) {
			return i
		}
	}
	return -1
}

// inferStationColumn finds the station id column for the direction,
// covering "Start Station Id", "from_station_id", "start_station_id" and
// their end-side counterparts.
func inferStationColumn(header []string, direction string) int {
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		if !strings.Contains(l, "station") || !strings.Contains(l, "id") {
			continue
		}
		if direction == DirectionCompletions {
			if strings.Contains(l, "end") || strings.HasPrefix(l, "to") {
				return i
			}
		} else if strings.Contains(l, "start") || strings.HasPrefix(l, "from") {
			return i
		}
	}
	return -1
}

// parseTimestamp tries the known layouts, remembering the last one that
// worked so well-formed files parse with a single attempt per row.
func parseTimestamp(v string, loc *time.Location, layout *int) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if ts, err := time.ParseInLocation(timeLayouts[*layout], v, loc); err == nil {
		return ts, true
	}
	for i, l := range timeLayouts {
		if i == *layout {
			continue
		}
		if ts, err := time.ParseInLocation(l, v, loc); err == nil {
			*layout = i
			return ts, true
		}
	}
	return time.Time{}, false
}

func listCSVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// extractArchives flattens every CSV member of every zip in dir into dir.
// Members already extracted are left alone, so re-running is cheap.
func extractArchives(dir string, log logger.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read source dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		n, err := extractZip(path, dir)
		if err != nil {
			log.Warnf("skipping archive %s: %v", e.Name(), err)
			continue
		}
		if n > 0 {
			log.Infof("extracted %d files from %s", n, e.Name())
		}
	}
	return nil
}

func extractZip(path, dir string) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for _, f := range r.File {
		name := filepath.Base(f.Name)
		if f.FileInfo().IsDir() || strings.Contains(f.Name, "__MACOSX") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := copyZipFile(f, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func copyZipFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}
