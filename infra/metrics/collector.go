package metrics

import (
	"context"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/events"
	coremetrics "github.com/kdr47101/Bikeshare-Demand-Forecasting/core/metrics"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records per-station
// outcomes on the sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.StationRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.StationTrained:
					_ = rec.RecordStationOutcome(coremetrics.StationOutcomeEvent{
						StationID: e.StationID,
						ModelID:   e.ModelID,
						Family:    e.Family,
						Stage:     "train",
						Rows:      e.Rows,
						Trained:   true,
						Time:      time.Now(),
					})
				case events.StationSkipped:
					reason := ""
					if e.Err != nil {
						reason = e.Err.Error()
					}
					_ = rec.RecordStationOutcome(coremetrics.StationOutcomeEvent{
						StationID: e.StationID,
						Stage:     e.Stage,
						Reason:    reason,
						Time:      time.Now(),
					})
				}
			}
		}
	}()
}
