// Package source provides the observation sources the pipeline can load
// demand data from: monthly ridership CSVs, the Toronto open-data CKAN
// portal, Postgres, and an in-memory source for tests and scenarios.
package source

import (
	"context"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// Source yields the raw station-hour observations one pipeline run loads.
type Source interface {
	Observations(ctx context.Context) ([]model.Observation, error)
}

var registry = factory.NewRegistry[Source]()

// RegisterSource registers a source factory under a type name.
func RegisterSource(name string, f factory.Factory[Source]) error {
	return registry.Register(name, f)
}

// NewSource builds the source named by the config block.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	return registry.Create(cfg)
}

// Memory serves a fixed observation slice.
type Memory struct {
	Rows []model.Observation
}

func (m Memory) Observations(context.Context) ([]model.Observation, error) {
	return m.Rows, nil
}
