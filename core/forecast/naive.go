package forecast

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// seasonalPeriod is one weekly cycle in hours.
const seasonalPeriod = 168

// SeasonalNaive forecasts each hour with the demand observed exactly one
// weekly cycle earlier. Fit stores nothing beyond the scope and training
// window; prediction needs only raw history.
type SeasonalNaive struct{}

func (SeasonalNaive) Family() string { return FamilySeasonalNaive }

func (SeasonalNaive) Fit(req FitRequest) (*Fitted, error) {
	if req.MinRows > 0 {
		if usable := len(usableRows(req.Rows)); usable < req.MinRows {
			return nil, fmt.Errorf("scope %s has %d usable rows, need %d: %w",
				req.Scope, usable, req.MinRows, ErrInsufficientHistory)
		}
	}
	return &Fitted{
		ID:     uuid.NewString(),
		Family: FamilySeasonalNaive,
		Scope:  req.Scope,
		Window: req.Window,
	}, nil
}

func (SeasonalNaive) Predict(f *Fitted, origin time.Time, horizon int, hist *History) ([]float64, error) {
	if f == nil || f.Family == "" {
		return nil, ErrNotFitted
	}
	if f.Family != FamilySeasonalNaive {
		return nil, fmt.Errorf("fitted model has family %s, want %s", f.Family, FamilySeasonalNaive)
	}
	if horizon <= 0 {
		return nil, model.NewConfigError("pipeline.horizon", "must be positive")
	}
	out := make([]float64, 0, horizon)
	for step := 1; step <= horizon; step++ {
		ts := origin.Add(time.Duration(step) * time.Hour)
		ref := ts.Add(-seasonalPeriod * time.Hour)
		v, ok := hist.At(ref)
		// A missing reference walks back whole cycles through known history.
		for !ok && !hist.Empty() && ref.After(hist.EarliestKnown()) {
			ref = ref.Add(-seasonalPeriod * time.Hour)
			v, ok = hist.At(ref)
		}
		if !ok || v < 0 {
			v = 0
		}
		out = append(out, v)
		hist.Append(v)
	}
	return out, nil
}
