package forecast

import (
	"fmt"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// Model family names.
const (
	FamilySeasonalNaive      = "seasonal_naive"
	FamilySeasonalRegression = "seasonal_regression"
)

// FitRequest carries one scope's training material. Rows are chronological
// feature rows for the scope; flagged incomplete rows never train.
type FitRequest struct {
	Scope  Scope
	Rows   []feature.Row
	Window Window
	Schema feature.Schema
	// MinRows is the minimum number of usable rows to fit; 0 disables the
	// check.
	MinRows int
}

// Model is one forecasting family. Implementations are stateless; all
// learned state lives in the Fitted bundle.
type Model interface {
	Family() string
	Fit(req FitRequest) (*Fitted, error)
	// Predict returns yhat for the horizon steps origin+1h .. origin+Hh.
	// Each step is appended to hist before the next one is computed, so lag
	// references inside the forecast range read the model's own prior
	// output rather than ground truth.
	Predict(f *Fitted, origin time.Time, horizon int, hist *History) ([]float64, error)
}

// New returns the model implementation for a family name.
func New(family string) (Model, error) {
	switch family {
	case FamilySeasonalNaive:
		return SeasonalNaive{}, nil
	case FamilySeasonalRegression:
		return SeasonalRegression{}, nil
	default:
		return nil, model.NewConfigError("model.family", fmt.Sprintf("unknown family %q", family))
	}
}

func usableRows(rows []feature.Row) []feature.Row {
	out := make([]feature.Row, 0, len(rows))
	for _, r := range rows {
		if !r.Incomplete {
			out = append(out, r)
		}
	}
	return out
}
