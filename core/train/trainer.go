// Package train fits forecast models over the training part of a demand
// grid, holding out the trailing evaluation window.
package train

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/events"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/feature"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/forecast"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/internal/eventbus"
)

// Training scopes.
const (
	ScopePerStation = "per_station"
	ScopeGlobal     = "global"
)

// Config controls one training pass.
type Config struct {
	Family          string `json:"family"`
	Scope           string `json:"scope"`
	MinTrainingRows int    `json:"min_training_rows"`
	HoldoutHours    int    `json:"holdout_hours"`
	Workers         int    `json:"workers"`
}

// SetDefaults fills unset fields with production defaults.
func (c *Config) SetDefaults() {
	if c.Family == "" {
		c.Family = forecast.FamilySeasonalNaive
	}
	if c.Scope == "" {
		c.Scope = ScopePerStation
	}
	if c.MinTrainingRows == 0 {
		c.MinTrainingRows = 336
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := forecast.New(c.Family); err != nil {
		return err
	}
	switch c.Scope {
	case ScopePerStation, ScopeGlobal:
	default:
		return model.NewConfigError("train.scope", fmt.Sprintf("unknown scope %q", c.Scope))
	}
	if c.MinTrainingRows < 0 {
		return model.NewConfigError("train.min_training_rows", "must not be negative")
	}
	if c.HoldoutHours < 0 {
		return model.NewConfigError("train.holdout_hours", "must not be negative")
	}
	return nil
}

// TrainOutcome records one scope's fit result. StationID is empty for the
// global scope.
type TrainOutcome struct {
	StationID string `json:"station_id,omitempty"`
	ModelID   string `json:"model_id,omitempty"`
	Rows      int    `json:"rows"`
	Reason    string `json:"reason,omitempty"`
	Err       error  `json:"-"`
}

// Result is the output of one training pass.
type Result struct {
	Models   forecast.ModelSet
	Outcomes []TrainOutcome
	// Cutoff is the first held-out hour; rows at or after it never train.
	Cutoff time.Time
}

// Trainer fits one model per station, or a single global model, over the
// rows before the holdout cutoff.
type Trainer struct {
	cfg    Config
	schema feature.Schema
	log    logger.Logger
	bus    eventbus.EventBus
}

// New validates the configuration and returns a Trainer. The bus is
// optional; events are skipped when it is nil.
func New(cfg Config, schema feature.Schema, log logger.Logger, bus eventbus.EventBus) (*Trainer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("train: nil logger provided to New")
	}
	return &Trainer{cfg: cfg, schema: schema, log: log, bus: bus}, nil
}

// Train fits models on the rows strictly before the holdout cutoff. The
// held-out window is never seen at fit time. Every grid station gets an
// outcome; per-station failures never abort the remaining stations.
func (t *Trainer) Train(ctx context.Context, grid *timeseries.Grid, rows []feature.Row) (*Result, error) {
	if grid == nil || len(rows) == 0 {
		return nil, timeseries.ErrEmptyInput
	}
	cutoff := grid.MaxTimestamp().Add(time.Hour)
	if t.cfg.HoldoutHours > 0 {
		cutoff = grid.MaxTimestamp().Add(-time.Duration(t.cfg.HoldoutHours-1) * time.Hour)
	}
	training := make([]feature.Row, 0, len(rows))
	for _, r := range rows {
		if r.Timestamp.Before(cutoff) {
			training = append(training, r)
		}
	}
	if len(training) == 0 {
		return nil, fmt.Errorf("no rows before holdout cutoff %s: %w",
			cutoff.Format(time.RFC3339), timeseries.ErrEmptyInput)
	}
	res := &Result{Cutoff: cutoff}
	if t.cfg.Scope == ScopeGlobal {
		return t.trainGlobal(res, training)
	}
	return t.trainStations(ctx, res, grid.Stations(), training)
}

func (t *Trainer) trainGlobal(res *Result, rows []feature.Row) (*Result, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StationID != rows[j].StationID {
			return rows[i].StationID < rows[j].StationID
		}
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	fitted, err := t.fit(forecast.GlobalScope(), rows, res.Cutoff)
	out := TrainOutcome{Rows: len(rows)}
	if err != nil {
		out.Reason, out.Err = err.Error(), err
		res.Outcomes = []TrainOutcome{out}
		return res, err
	}
	out.ModelID = fitted.ID
	res.Models.Global = fitted
	res.Outcomes = []TrainOutcome{out}
	t.log.Infof("trained global %s model on %d rows", t.cfg.Family, len(rows))
	return res, nil
}

// trainStations fits one model per station id. A station whose feature
// rows were all dropped still gets an outcome, failing the minimum-rows
// check inside Fit.
func (t *Trainer) trainStations(ctx context.Context, res *Result, ids []string, rows []feature.Row) (*Result, error) {
	byStation := make(map[string][]feature.Row)
	for _, r := range rows {
		byStation[r.StationID] = append(byStation[r.StationID], r)
	}

	res.Models.Stations = make(map[string]*forecast.Fitted)
	outcomes := make(map[string]TrainOutcome, len(ids))
	var mu sync.Mutex
	record := func(out TrainOutcome, fitted *forecast.Fitted) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[out.StationID] = out
		if fitted != nil {
			res.Models.Stations[out.StationID] = fitted
		}
	}

	workers := t.cfg.Workers
	if workers > len(ids) {
		workers = len(ids)
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := ctx.Err(); err != nil {
					record(TrainOutcome{StationID: id, Reason: err.Error(), Err: err}, nil)
					continue
				}
				record(t.fitStation(id, byStation[id], res.Cutoff))
			}
		}()
	}
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	for _, id := range ids {
		res.Outcomes = append(res.Outcomes, outcomes[id])
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(res.Models.Stations) == 0 {
		return res, fmt.Errorf("no station produced a model: %w", timeseries.ErrEmptyInput)
	}
	return res, nil
}

func (t *Trainer) fitStation(id string, rows []feature.Row, cutoff time.Time) (TrainOutcome, *forecast.Fitted) {
	out := TrainOutcome{StationID: id, Rows: len(rows)}
	fitted, err := t.fit(forecast.StationScope(id), rows, cutoff)
	if err != nil {
		out.Reason, out.Err = err.Error(), err
		t.log.Warnf("station %s not trained: %v", id, err)
		if t.bus != nil {
			t.bus.Publish(events.StationSkipped{StationID: id, Stage: "train", Err: err})
		}
		return out, nil
	}
	out.ModelID = fitted.ID
	if t.bus != nil {
		t.bus.Publish(events.StationTrained{
			StationID: id,
			ModelID:   fitted.ID,
			Family:    t.cfg.Family,
			Rows:      len(rows),
		})
	}
	return out, fitted
}

func (t *Trainer) fit(scope forecast.Scope, rows []feature.Row, cutoff time.Time) (*forecast.Fitted, error) {
	m, err := forecast.New(t.cfg.Family)
	if err != nil {
		return nil, err
	}
	return m.Fit(forecast.FitRequest{
		Scope:   scope,
		Rows:    rows,
		Window:  trainingWindow(rows, cutoff),
		Schema:  t.schema,
		MinRows: t.cfg.MinTrainingRows,
	})
}

// trainingWindow is the half-open hour range the rows cover, capped by the
// holdout cutoff.
func trainingWindow(rows []feature.Row, cutoff time.Time) forecast.Window {
	w := forecast.Window{End: cutoff}
	for _, r := range rows {
		if w.Start.IsZero() || r.Timestamp.Before(w.Start) {
			w.Start = r.Timestamp
		}
	}
	return w
}
