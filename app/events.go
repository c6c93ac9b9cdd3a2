package app

import (
	"context"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/events"
)

// startEventLogger subscribes to run lifecycle events and logs them. It
// stops when the context is canceled or the bus closes.
func (s *Service) startEventLogger(ctx context.Context) {
	sub := s.bus.Subscribe()
	go func() {
		defer s.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.RunStarted:
					s.log.Infof("run %s started", e.RunID)
				case events.StationTrained:
					s.log.Debugf("station %s trained: %s (%d rows)", e.StationID, e.ModelID, e.Rows)
				case events.StationSkipped:
					s.log.Warnf("station %s skipped at %s: %v", e.StationID, e.Stage, e.Err)
				case events.RunCompleted:
					if e.Err != nil {
						s.log.Errorf("run %s failed after %s: %v", e.RunID, e.Duration.Round(time.Millisecond), e.Err)
					} else {
						s.log.Infof("run %s completed: %d stations, %d forecasts in %s",
							e.RunID, e.Stations, e.Forecasts, e.Duration.Round(time.Millisecond))
					}
				}
			}
		}
	}()
}
