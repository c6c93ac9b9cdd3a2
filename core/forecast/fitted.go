package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
)

// Scope identifies what a fitted model covers: one station, or every
// station when the id is empty.
type Scope struct {
	StationID string `json:"station_id,omitempty"`
}

// GlobalScope covers all stations with a single model.
func GlobalScope() Scope { return Scope{} }

// StationScope covers one station.
func StationScope(id string) Scope { return Scope{StationID: id} }

// Global reports whether the scope covers every station.
func (s Scope) Global() bool { return s.StationID == "" }

func (s Scope) String() string {
	if s.Global() {
		return "global"
	}
	return s.StationID
}

// Window is a half-open training window [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Fitted is the parameter bundle a model's Fit produces. It is immutable:
// retraining creates a new Fitted with a new ID, never mutates one.
type Fitted struct {
	ID     string          `json:"id"`
	Family string          `json:"family"`
	Scope  Scope           `json:"scope"`
	Window Window          `json:"window"`
	Schema *feature.Schema `json:"schema,omitempty"`
	Coef   []float64       `json:"coef,omitempty"`
}

// Encode serializes a fitted model.
func Encode(f *Fitted) ([]byte, error) {
	if f == nil {
		return nil, ErrNotFitted
	}
	return json.Marshal(f)
}

// Decode restores a fitted model produced by Encode. The restored model
// predicts identically to the original.
func Decode(raw []byte) (*Fitted, error) {
	var f Fitted
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fitted model: %w", err)
	}
	if _, err := New(f.Family); err != nil {
		return nil, err
	}
	if f.Schema != nil {
		if _, err := f.Schema.Compile(); err != nil {
			return nil, fmt.Errorf("decode fitted model: %w", err)
		}
	}
	return &f, nil
}
