package feature

import (
	"fmt"
	"iter"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// NullPolicy controls how null lag and rolling inputs are resolved. It
// never applies to the target: rows with a null target are always dropped.
type NullPolicy string

const (
	NullDrop        NullPolicy = "drop"
	NullZeroFill    NullPolicy = "zero_fill"
	NullForwardFill NullPolicy = "forward_fill"
)

// IncompletePolicy controls rows whose lag or rolling inputs reach back
// before the station's first grid hour.
type IncompletePolicy string

const (
	IncompleteDrop IncompletePolicy = "drop"
	IncompleteFlag IncompletePolicy = "flag"
)

// Config parameterizes a Builder.
type Config struct {
	Lags           []int
	RollingWindows []int
	Holidays       Calendar
	NullPolicy     NullPolicy
	Incomplete     IncompletePolicy
	HourEncoding   HourEncoding
	// Location is the timezone calendar features are computed in; UTC when
	// nil. Timestamps themselves stay in UTC.
	Location *time.Location
	// Weather enables the weather columns when non-nil.
	Weather WeatherProvider
}

// Row is one supervised-learning instance: the demand at Timestamp as the
// target, predictors in Values ordered as Builder.Names. Incomplete rows
// only appear under IncompleteFlag and are excluded from training.
type Row struct {
	StationID  string
	Timestamp  time.Time
	Target     float64
	Values     []float64
	Incomplete bool
}

// Builder derives supervised rows from a demand grid. Every lag or rolling
// input is read strictly before the row's own hour; the target is the only
// value read at it. Building is deterministic: the same grid and config
// produce identical rows in identical order.
type Builder struct {
	cfg  Config
	comp *Compiled
}

// NewBuilder validates the config and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	switch cfg.NullPolicy {
	case "":
		cfg.NullPolicy = NullDrop
	case NullDrop, NullZeroFill, NullForwardFill:
	default:
		return nil, model.NewConfigError("features.null_policy", fmt.Sprintf("unknown policy %q", cfg.NullPolicy))
	}
	switch cfg.Incomplete {
	case "":
		cfg.Incomplete = IncompleteDrop
	case IncompleteDrop, IncompleteFlag:
	default:
		return nil, model.NewConfigError("features.incomplete_policy", fmt.Sprintf("unknown policy %q", cfg.Incomplete))
	}
	tz := ""
	if cfg.Location != nil {
		tz = cfg.Location.String()
	}
	comp, err := Schema{
		HourEncoding: cfg.HourEncoding,
		Lags:         cfg.Lags,
		Windows:      cfg.RollingWindows,
		Holidays:     cfg.Holidays.Dates(),
		Timezone:     tz,
		Weather:      cfg.Weather != nil,
	}.Compile()
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, comp: comp}, nil
}

// Schema returns the serializable vector layout.
func (b *Builder) Schema() Schema { return b.comp.Spec() }

// Compiled returns the compiled schema.
func (b *Builder) Compiled() *Compiled { return b.comp }

// Names returns the feature names in vector order.
func (b *Builder) Names() []string { return b.comp.Names() }

// Rows returns a lazy sequence of feature rows, stations in ascending id
// order, hours ascending within a station. Ranging again restarts it.
func (b *Builder) Rows(grid *timeseries.Grid) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, station := range grid.Stations() {
			start, end, ok := grid.Span(station)
			if !ok {
				continue
			}
			hist := grid.Between(station, start, end)
			for i := range hist {
				row, ok := b.row(station, hist, i)
				if !ok {
					continue
				}
				if !yield(row) {
					return
				}
			}
		}
	}
}

// Build collects the full sequence into a slice.
func (b *Builder) Build(grid *timeseries.Grid) []Row {
	var rows []Row
	for row := range b.Rows(grid) {
		rows = append(rows, row)
	}
	return rows
}

func (b *Builder) row(station string, hist []model.Observation, i int) (Row, bool) {
	target := hist[i]
	if target.Missing() {
		return Row{}, false
	}
	row := Row{
		StationID: station,
		Timestamp: target.Timestamp,
		Target:    *target.Demand,
	}
	values := b.comp.CalendarValues(target.Timestamp)
	for _, lag := range b.comp.Lags() {
		v, ok := b.input(hist, i-lag, &row)
		if !ok {
			return Row{}, false
		}
		values = append(values, v)
	}
	for _, w := range b.comp.Windows() {
		var sum float64
		complete := true
		for j := i - w; j < i; j++ {
			v, ok := b.input(hist, j, &row)
			if !ok {
				complete = false
				break
			}
			sum += v
		}
		if !complete {
			return Row{}, false
		}
		values = append(values, sum/float64(w))
	}
	values = append(values, b.comp.WeatherValues(target.Timestamp, b.cfg.Weather)...)
	row.Values = values
	return row, true
}

// input resolves one lag or rolling element at history index j. A false
// return drops the whole row under the active policies.
func (b *Builder) input(hist []model.Observation, j int, row *Row) (float64, bool) {
	if j < 0 {
		return b.incomplete(row)
	}
	if v := hist[j].Demand; v != nil {
		return *v, true
	}
	switch b.cfg.NullPolicy {
	case NullZeroFill:
		return 0, true
	case NullForwardFill:
		for k := j - 1; k >= 0; k-- {
			if v := hist[k].Demand; v != nil {
				return *v, true
			}
		}
		return b.incomplete(row)
	default:
		return 0, false
	}
}

func (b *Builder) incomplete(row *Row) (float64, bool) {
	if b.cfg.Incomplete == IncompleteFlag {
		row.Incomplete = true
		return 0, true
	}
	return 0, false
}
