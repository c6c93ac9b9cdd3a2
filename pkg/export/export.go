// Package export writes run results as flat CSV and JSON tables for BI
// consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/runstore"
)

// Summary is the one-line BI report for a run.
type Summary struct {
	RunID        string    `json:"run_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	TotalDemand  float64   `json:"total_demand"`
	Stations     int       `json:"stations"`
	ForecastRows int       `json:"forecast_rows"`
}

// SummaryOf condenses a run result into the BI summary.
func SummaryOf(res runstore.RunResult) Summary {
	return Summary{
		RunID:        res.RunID,
		WindowStart:  res.Load.WindowStart,
		WindowEnd:    res.Load.WindowEnd,
		TotalDemand:  res.Load.TotalDemand,
		Stations:     res.Load.Stations,
		ForecastRows: len(res.Forecasts),
	}
}

// WriteForecastCSV writes forecast rows to w in CSV format.
func WriteForecastCSV(w io.Writer, rows []model.ForecastRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station_id", "timestamp", "yhat", "horizon_step", "model_id"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.StationID,
			r.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(r.Yhat, 'f', -1, 64),
			strconv.Itoa(r.HorizonStep),
			r.ModelID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastJSON writes forecast rows to w in JSON format.
func WriteForecastJSON(w io.Writer, rows []model.ForecastRow) error {
	return json.NewEncoder(w).Encode(rows)
}

// WriteEvaluationCSV writes evaluation records to w in CSV format.
// Undefined metrics become empty cells, never zeros.
func WriteEvaluationCSV(w io.Writer, recs []model.EvaluationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station_id", "mae", "mape", "n_observations", "n_zero_actuals", "n_missing_actuals"}); err != nil {
		return err
	}
	for _, r := range recs {
		rec := []string{
			r.StationID,
			floatCell(r.MAE),
			floatCell(r.MAPE),
			strconv.Itoa(r.NObservations),
			strconv.Itoa(r.NZeroActuals),
			strconv.Itoa(r.NMissingActuals),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvaluationJSON writes evaluation records to w in JSON format.
func WriteEvaluationJSON(w io.Writer, recs []model.EvaluationRecord) error {
	return json.NewEncoder(w).Encode(recs)
}

// WriteSummaryCSV writes the one-row run summary to w in CSV format.
func WriteSummaryCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "window_start", "window_end", "total_demand", "stations", "forecast_rows"}); err != nil {
		return err
	}
	rec := []string{
		s.RunID,
		s.WindowStart.Format(time.RFC3339),
		s.WindowEnd.Format(time.RFC3339),
		strconv.FormatFloat(s.TotalDemand, 'f', -1, 64),
		strconv.Itoa(s.Stations),
		strconv.Itoa(s.ForecastRows),
	}
	if err := cw.Write(rec); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryJSON writes the run summary to w in JSON format.
func WriteSummaryJSON(w io.Writer, s Summary) error {
	return json.NewEncoder(w).Encode(s)
}

// WriteStationsCSV writes the station directory to w in CSV format.
func WriteStationsCSV(w io.Writer, stations []model.StationInfo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"station_id", "name", "capacity", "lat", "lon"}); err != nil {
		return err
	}
	for _, s := range stations {
		rec := []string{
			s.StationID,
			s.Name,
			strconv.Itoa(s.Capacity),
			strconv.FormatFloat(s.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Lon, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRunFiles writes every table of the run into dir: forecasts and the
// summary always, evaluations and stations when the run produced them.
func WriteRunFiles(dir string, res runstore.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	summary := SummaryOf(res)
	if err := writeFile(filepath.Join(dir, "forecasts.csv"), func(w io.Writer) error {
		return WriteForecastCSV(w, res.Forecasts)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "forecasts.json"), func(w io.Writer) error {
		return WriteForecastJSON(w, res.Forecasts)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "summary.csv"), func(w io.Writer) error {
		return WriteSummaryCSV(w, summary)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "summary.json"), func(w io.Writer) error {
		return WriteSummaryJSON(w, summary)
	}); err != nil {
		return err
	}
	if len(res.Evaluations) > 0 {
		if err := writeFile(filepath.Join(dir, "evaluations.csv"), func(w io.Writer) error {
			return WriteEvaluationCSV(w, res.Evaluations)
		}); err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, "evaluations.json"), func(w io.Writer) error {
			return WriteEvaluationJSON(w, res.Evaluations)
		}); err != nil {
			return err
		}
	}
	if len(res.Stations) > 0 {
		if err := writeFile(filepath.Join(dir, "stations.csv"), func(w io.Writer) error {
			return WriteStationsCSV(w, res.Stations)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func floatCell(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
