package forecast

import (
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// History is the explicit buffer recursive prediction reads and extends:
// the station's known observations up to the forecast origin, overlaid with
// the model's own already-predicted steps. Models append each step before
// computing the next, which keeps multi-step prediction inspectable from
// the outside.
type History struct {
	station string
	origin  time.Time
	start   time.Time
	values  []float64
	present []bool
	preds   []float64
	weather feature.WeatherProvider
}

// NewHistory builds the buffer from observations at or before origin;
// later observations are discarded so predictions can never read past the
// origin.
func NewHistory(station string, obs []model.Observation, origin time.Time, weather feature.WeatherProvider) *History {
	h := &History{station: station, origin: timeseries.HourOf(origin), weather: weather}
	var min, max time.Time
	for _, o := range obs {
		ts := timeseries.HourOf(o.Timestamp)
		if ts.After(h.origin) {
			continue
		}
		if min.IsZero() || ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	if min.IsZero() {
		return h
	}
	n := int(max.Sub(min)/time.Hour) + 1
	h.start = min
	h.values = make([]float64, n)
	h.present = make([]bool, n)
	for _, o := range obs {
		ts := timeseries.HourOf(o.Timestamp)
		if ts.After(h.origin) || o.Demand == nil {
			continue
		}
		i := int(ts.Sub(min) / time.Hour)
		h.values[i] = *o.Demand
		h.present[i] = true
	}
	return h
}

// Station returns the station the buffer belongs to.
func (h *History) Station() string { return h.station }

// Origin returns the forecast origin; predictions cover origin+1h onward.
func (h *History) Origin() time.Time { return h.origin }

// Empty reports whether the buffer holds no known observations.
func (h *History) Empty() bool {
	for _, ok := range h.present {
		if ok {
			return false
		}
	}
	return true
}

// EarliestKnown returns the first hour covered by known observations, or
// the zero time when there are none.
func (h *History) EarliestKnown() time.Time {
	if len(h.values) == 0 {
		return time.Time{}
	}
	return h.start
}

// At returns the value at exactly ts: an already-predicted step when ts is
// inside the forecast range, otherwise the known observation. ok is false
// for gaps and hours outside the buffer.
func (h *History) At(ts time.Time) (float64, bool) {
	ts = timeseries.HourOf(ts)
	if step := int(ts.Sub(h.origin) / time.Hour); step >= 1 {
		if step <= len(h.preds) {
			return h.preds[step-1], true
		}
		return 0, false
	}
	if len(h.values) == 0 {
		return 0, false
	}
	i := int(ts.Sub(h.start) / time.Hour)
	if i < 0 || i >= len(h.values) || !h.present[i] {
		return 0, false
	}
	return h.values[i], true
}

// LatestAt returns the most recent value at or before ts, walking back over
// gaps. ok is false when nothing earlier is known.
func (h *History) LatestAt(ts time.Time) (float64, bool) {
	ts = timeseries.HourOf(ts)
	if step := int(ts.Sub(h.origin) / time.Hour); step >= 1 {
		if len(h.preds) == 0 {
			return h.latestKnown(h.origin)
		}
		if step > len(h.preds) {
			step = len(h.preds)
		}
		return h.preds[step-1], true
	}
	return h.latestKnown(ts)
}

func (h *History) latestKnown(ts time.Time) (float64, bool) {
	if len(h.values) == 0 {
		return 0, false
	}
	i := int(ts.Sub(h.start) / time.Hour)
	if i >= len(h.values) {
		i = len(h.values) - 1
	}
	for ; i >= 0; i-- {
		if h.present[i] {
			return h.values[i], true
		}
	}
	return 0, false
}

// Append records one predicted step.
func (h *History) Append(v float64) { h.preds = append(h.preds, v) }

// Steps returns a copy of the predicted steps appended so far.
func (h *History) Steps() []float64 { return append([]float64(nil), h.preds...) }

// Weather returns the provider for weather feature lookups, possibly nil.
func (h *History) Weather() feature.WeatherProvider { return h.weather }
