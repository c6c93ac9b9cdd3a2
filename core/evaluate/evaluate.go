// Package evaluate scores forecast rows against the demand grid's actuals
// over a held-out window.
package evaluate

import (
	"math"
	"sort"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// AllStations labels the aggregate record appended after the per-station
// records.
const AllStations = "ALL"

type accumulator struct {
	absErr float64 // sum of |actual - yhat| over matched rows
	pctErr float64 // sum of |actual - yhat| / actual over non-zero actuals
	n      int     // matched rows
	nZero  int     // matched rows excluded from MAPE
	nMiss  int     // forecast rows with no usable actual
}

func (a *accumulator) record(id string) model.EvaluationRecord {
	rec := model.EvaluationRecord{
		StationID:       id,
		NObservations:   a.n,
		NZeroActuals:    a.nZero,
		NMissingActuals: a.nMiss,
	}
	if a.n > 0 {
		rec.MAE = model.Float(a.absErr / float64(a.n))
		if inc := a.n - a.nZero; inc > 0 {
			rec.MAPE = model.Float(a.pctErr / float64(inc) * 100)
		}
	}
	return rec
}

// Evaluate matches each forecast row to the actual demand at the same
// station and hour and reports MAE and MAPE per station, plus an "ALL"
// record holding the count-weighted mean of the per-station metrics (MAE
// weighted by matched rows, MAPE by the rows it included). Records are
// ordered by ascending station id with "ALL" last.
//
// MAPE is a percentage and skips rows whose actual is zero; the skips are
// counted in n_zero_actuals. A forecast row whose actual is missing or
// outside the grid is counted in n_missing_actuals and scores nothing.
// Metrics that end up with no rows stay nil rather than reporting zero.
func Evaluate(forecasts []model.ForecastRow, grid *timeseries.Grid) []model.EvaluationRecord {
	if len(forecasts) == 0 {
		return nil
	}
	acc := make(map[string]*accumulator)
	for _, f := range forecasts {
		a := acc[f.StationID]
		if a == nil {
			a = &accumulator{}
			acc[f.StationID] = a
		}
		var obs model.Observation
		var ok bool
		if grid != nil {
			obs, ok = grid.At(f.StationID, f.Timestamp)
		}
		if !ok || obs.Missing() {
			a.nMiss++
			continue
		}
		actual := *obs.Demand
		a.n++
		a.absErr += math.Abs(actual - f.Yhat)
		if actual == 0 {
			a.nZero++
			continue
		}
		a.pctErr += math.Abs((actual - f.Yhat) / actual)
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.EvaluationRecord, 0, len(ids)+1)
	var all accumulator
	var maeNum, mapeNum float64
	var maeDen, mapeDen int
	for _, id := range ids {
		a := acc[id]
		rec := a.record(id)
		out = append(out, rec)
		all.n += a.n
		all.nZero += a.nZero
		all.nMiss += a.nMiss
		if rec.MAE != nil {
			maeNum += *rec.MAE * float64(a.n)
			maeDen += a.n
		}
		if rec.MAPE != nil {
			inc := a.n - a.nZero
			mapeNum += *rec.MAPE * float64(inc)
			mapeDen += inc
		}
	}
	allRec := model.EvaluationRecord{
		StationID:       AllStations,
		NObservations:   all.n,
		NZeroActuals:    all.nZero,
		NMissingActuals: all.nMiss,
	}
	if maeDen > 0 {
		allRec.MAE = model.Float(maeNum / float64(maeDen))
	}
	if mapeDen > 0 {
		allRec.MAPE = model.Float(mapeNum / float64(mapeDen))
	}
	return append(out, allRec)
}
