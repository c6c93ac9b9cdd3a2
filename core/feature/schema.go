package feature

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// HourEncoding selects how hour-of-day becomes numeric features.
type HourEncoding string

const (
	// HourCyclical emits a sine/cosine pair.
	HourCyclical HourEncoding = "cyclical"
	// HourCategorical emits 23 dummy columns with hour 0 as the baseline.
	HourCategorical HourEncoding = "categorical"
)

// weatherColumns are the columns appended when weather features are enabled.
var weatherColumns = []string{"temp_c", "precip_mm"}

// Schema is the serializable description of a feature vector layout. A
// fitted regression carries its schema so prediction rebuilds vectors
// exactly as training produced them.
type Schema struct {
	HourEncoding HourEncoding `json:"hour_encoding"`
	Lags         []int        `json:"lags"`
	Windows      []int        `json:"windows,omitempty"`
	Holidays     []string     `json:"holidays,omitempty"`
	Timezone     string       `json:"timezone,omitempty"`
	Weather      bool         `json:"weather,omitempty"`
}

// Compile validates the schema and resolves its timezone and holiday set.
func (s Schema) Compile() (*Compiled, error) {
	if s.HourEncoding == "" {
		s.HourEncoding = HourCyclical
	}
	if s.HourEncoding != HourCyclical && s.HourEncoding != HourCategorical {
		return nil, model.NewConfigError("features.hour_encoding", fmt.Sprintf("unknown encoding %q", s.HourEncoding))
	}
	if len(s.Lags) == 0 {
		return nil, model.NewConfigError("features.lag_hours", "at least one lag is required")
	}
	for _, l := range s.Lags {
		if l <= 0 {
			return nil, model.NewConfigError("features.lag_hours", fmt.Sprintf("lag %d must be positive", l))
		}
	}
	for _, w := range s.Windows {
		if w <= 0 {
			return nil, model.NewConfigError("features.rolling_windows", fmt.Sprintf("window %d must be positive", w))
		}
	}
	loc := time.UTC
	if s.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(s.Timezone); err != nil {
			return nil, model.NewConfigError("pipeline.timezone", err.Error())
		}
	}
	holidays, err := CalendarFromStrings(s.Holidays)
	if err != nil {
		return nil, err
	}
	s.Lags = append([]int(nil), s.Lags...)
	sort.Ints(s.Lags)
	s.Windows = append([]int(nil), s.Windows...)
	sort.Ints(s.Windows)
	s.Holidays = holidays.Dates()
	c := &Compiled{spec: s, loc: loc, holidays: holidays}
	c.names = c.buildNames()
	return c, nil
}

// Compiled is a validated schema with its timezone and holiday set resolved.
type Compiled struct {
	spec     Schema
	loc      *time.Location
	holidays Calendar
	names    []string
}

func (c *Compiled) buildNames() []string {
	var names []string
	switch c.spec.HourEncoding {
	case HourCategorical:
		for h := 1; h < 24; h++ {
			names = append(names, fmt.Sprintf("hour_%02d", h))
		}
	default:
		names = append(names, "hour_sin", "hour_cos")
	}
	names = append(names, "dow_sin", "dow_cos", "is_holiday")
	for _, l := range c.spec.Lags {
		names = append(names, fmt.Sprintf("lag_%d", l))
	}
	for _, w := range c.spec.Windows {
		names = append(names, fmt.Sprintf("roll_%d", w))
	}
	if c.spec.Weather {
		names = append(names, weatherColumns...)
	}
	return names
}

// Spec returns the serializable schema with lags, windows and holidays in
// canonical order.
func (c *Compiled) Spec() Schema { return c.spec }

// Names returns the feature names in vector order.
func (c *Compiled) Names() []string { return append([]string(nil), c.names...) }

// Index returns the position of a feature name, or -1.
func (c *Compiled) Index(name string) int {
	for i, n := range c.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Len returns the vector width.
func (c *Compiled) Len() int { return len(c.names) }

// Lags returns the lag hours, sorted ascending.
func (c *Compiled) Lags() []int { return append([]int(nil), c.spec.Lags...) }

// Windows returns the rolling windows, sorted ascending.
func (c *Compiled) Windows() []int { return append([]int(nil), c.spec.Windows...) }

// HasWeather reports whether the vector carries weather columns.
func (c *Compiled) HasWeather() bool { return c.spec.Weather }

// Location returns the timezone calendar features are computed in.
func (c *Compiled) Location() *time.Location { return c.loc }

// CalendarValues returns the calendar block of the vector for ts: the hour
// encoding, the day-of-week pair and the holiday flag, in name order.
func (c *Compiled) CalendarValues(ts time.Time) []float64 {
	local := ts.In(c.loc)
	out := make([]float64, 0, len(c.names))
	switch c.spec.HourEncoding {
	case HourCategorical:
		var dummies [23]float64
		if h := local.Hour(); h > 0 {
			dummies[h-1] = 1
		}
		out = append(out, dummies[:]...)
	default:
		angle := 2 * math.Pi * float64(local.Hour()) / 24
		out = append(out, math.Sin(angle), math.Cos(angle))
	}
	dow := 2 * math.Pi * float64(local.Weekday()) / 7
	out = append(out, math.Sin(dow), math.Cos(dow))
	if c.holidays.Contains(ts, c.loc) {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

// WeatherValues returns the weather block for ts, zeros when the provider
// has nothing at or before ts or the schema has no weather columns enabled.
func (c *Compiled) WeatherValues(ts time.Time, weather WeatherProvider) []float64 {
	if !c.spec.Weather {
		return nil
	}
	if weather == nil {
		return make([]float64, len(weatherColumns))
	}
	w, ok := weather.At(ts)
	if !ok {
		return make([]float64, len(weatherColumns))
	}
	return []float64{w.TempC, w.PrecipMM}
}
