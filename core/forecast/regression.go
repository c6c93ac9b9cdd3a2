package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// SeasonalRegression fits ordinary least squares over the feature schema
// and predicts recursively: each step rebuilds its feature vector from the
// history buffer, so lag references inside the forecast range consume the
// model's own earlier output.
type SeasonalRegression struct{}

func (SeasonalRegression) Family() string { return FamilySeasonalRegression }

func (SeasonalRegression) Fit(req FitRequest) (*Fitted, error) {
	comp, err := req.Schema.Compile()
	if err != nil {
		return nil, err
	}
	rows := usableRows(req.Rows)
	if req.MinRows > 0 && len(rows) < req.MinRows {
		return nil, fmt.Errorf("scope %s has %d usable rows, need %d: %w",
			req.Scope, len(rows), req.MinRows, ErrInsufficientHistory)
	}
	width := comp.Len()
	// Zero-variance columns (an empty holiday calendar, a constant series)
	// would make the design matrix rank deficient; they are pruned from the
	// solve and keep a zero coefficient.
	varying := varyingColumns(rows, width)
	if len(rows) < len(varying)+1 {
		return nil, fmt.Errorf("scope %s has %d usable rows for %d parameters: %w",
			req.Scope, len(rows), len(varying)+1, ErrInsufficientHistory)
	}

	x := mat.NewDense(len(rows), len(varying)+1, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		x.Set(i, 0, 1)
		for k, j := range varying {
			x.Set(i, k+1, r.Values[j])
		}
		y.SetVec(i, r.Target)
	}
	reduced, err := olsSolve(x, y)
	if err != nil {
		return nil, fmt.Errorf("ols solve for scope %s: %w", req.Scope, err)
	}
	coef := make([]float64, width+1)
	coef[0] = reduced[0]
	for k, j := range varying {
		coef[j+1] = reduced[k+1]
	}
	schema := comp.Spec()
	return &Fitted{
		ID:     uuid.NewString(),
		Family: FamilySeasonalRegression,
		Scope:  req.Scope,
		Window: req.Window,
		Schema: &schema,
		Coef:   coef,
	}, nil
}

func (SeasonalRegression) Predict(f *Fitted, origin time.Time, horizon int, hist *History) ([]float64, error) {
	if f == nil || len(f.Coef) == 0 || f.Schema == nil {
		return nil, ErrNotFitted
	}
	if f.Family != FamilySeasonalRegression {
		return nil, fmt.Errorf("fitted model has family %s, want %s", f.Family, FamilySeasonalRegression)
	}
	if horizon <= 0 {
		return nil, model.NewConfigError("pipeline.horizon", "must be positive")
	}
	comp, err := f.Schema.Compile()
	if err != nil {
		return nil, err
	}
	if len(f.Coef) != comp.Len()+1 {
		return nil, fmt.Errorf("fitted model has %d coefficients for %d features", len(f.Coef), comp.Len())
	}
	out := make([]float64, 0, horizon)
	for step := 1; step <= horizon; step++ {
		ts := origin.Add(time.Duration(step) * time.Hour)
		vec := comp.CalendarValues(ts)
		for _, lag := range comp.Lags() {
			vec = append(vec, lagInput(hist, ts.Add(-time.Duration(lag)*time.Hour)))
		}
		for _, w := range comp.Windows() {
			var sum float64
			for j := 1; j <= w; j++ {
				sum += lagInput(hist, ts.Add(-time.Duration(j)*time.Hour))
			}
			vec = append(vec, sum/float64(w))
		}
		vec = append(vec, comp.WeatherValues(ts, hist.Weather())...)

		yhat := f.Coef[0]
		for i, v := range vec {
			yhat += f.Coef[i+1] * v
		}
		if yhat < 0 {
			yhat = 0
		}
		out = append(out, yhat)
		hist.Append(yhat)
	}
	return out, nil
}

// lagInput resolves one lag or rolling element from the buffer: the exact
// hour when known, otherwise the latest earlier value, otherwise zero.
func lagInput(hist *History, ts time.Time) float64 {
	if v, ok := hist.At(ts); ok {
		return v
	}
	if v, ok := hist.LatestAt(ts); ok {
		return v
	}
	return 0
}

func varyingColumns(rows []feature.Row, width int) []int {
	if len(rows) == 0 {
		return nil
	}
	var cols []int
	for j := 0; j < width; j++ {
		first := rows[0].Values[j]
		for _, r := range rows[1:] {
			if r.Values[j] != first {
				cols = append(cols, j)
				break
			}
		}
	}
	return cols
}

// solveOLS computes least squares coefficients through a QR factorization.
// A poorly conditioned system is accepted with gonum's condition warning.
func solveOLS(x *mat.Dense, y *mat.VecDense) ([]float64, error) {
	var qr mat.QR
	qr.Factorize(x)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	_, cols := x.Dims()
	out := make([]float64, cols)
	for i := range out {
		out[i] = sol.AtVec(i)
	}
	return out, nil
}

// olsSolve points to the least squares solver. Tests may override it to
// simulate solver failures.
var olsSolve = solveOLS
