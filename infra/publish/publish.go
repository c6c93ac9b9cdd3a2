// Package publish delivers finished forecasts to downstream consumers
// over MQTT or Redis. Publishers are fan-out composable and selected by
// config type name.
package publish

import (
	"context"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// Publisher pushes the forecast rows of one run to a downstream consumer.
type Publisher interface {
	PublishForecasts(ctx context.Context, runID string, rows []model.ForecastRow) error
	Close() error
}

// StationPayload is the per-station message published over MQTT.
type StationPayload struct {
	RunID       string              `json:"run_id"`
	StationID   string              `json:"station_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Forecasts   []model.ForecastRow `json:"forecasts"`
}

// RunPayload is the whole-run message published to Redis.
type RunPayload struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Forecasts   []model.ForecastRow `json:"forecasts"`
}

var registry = factory.NewRegistry[Publisher]()

// RegisterPublisher registers a publisher factory under a type name.
func RegisterPublisher(name string, f factory.Factory[Publisher]) error {
	return registry.Register(name, f)
}

// NewPublisher builds the publisher named by the config block.
func NewPublisher(cfg factory.ModuleConfig) (Publisher, error) {
	return registry.Create(cfg)
}

// NewPublishers builds a publisher from zero or more config blocks: none
// disables publishing, several fan out.
func NewPublishers(cfgs []factory.ModuleConfig) (Publisher, error) {
	switch len(cfgs) {
	case 0:
		return Nop{}, nil
	case 1:
		return NewPublisher(cfgs[0])
	}
	multi := Multi{}
	for _, cfg := range cfgs {
		p, err := NewPublisher(cfg)
		if err != nil {
			multi.Close()
			return nil, err
		}
		multi.Publishers = append(multi.Publishers, p)
	}
	return multi, nil
}

// Nop drops everything, for runs with publishing disabled.
type Nop struct{}

func (Nop) PublishForecasts(context.Context, string, []model.ForecastRow) error { return nil }
func (Nop) Close() error                                                        { return nil }

// Multi fans out to several publishers. Every publisher is attempted even
// after a failure; the first error is returned.
type Multi struct {
	Publishers []Publisher
}

func (m Multi) PublishForecasts(ctx context.Context, runID string, rows []model.ForecastRow) error {
	var first error
	for _, p := range m.Publishers {
		if err := p.PublishForecasts(ctx, runID, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m.Publishers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
