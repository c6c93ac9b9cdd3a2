package events

import "time"

// RunStarted is published when a forecast run begins.
type RunStarted struct {
	RunID string
	At    time.Time
}

// RunCompleted is published when a forecast run ends. Err is nil on
// success.
type RunCompleted struct {
	RunID     string
	Stations  int
	Forecasts int
	Duration  time.Duration
	Err       error
}
