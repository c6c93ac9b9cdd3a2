// Package events defines the pipeline related events emitted on the event bus.
//
// Available event types:
//   - RunStarted: a forecast run began
//   - RunCompleted: a forecast run finished, successfully or not
//   - StationTrained: one station produced a fitted model
//   - StationSkipped: one station was dropped from training or forecasting
package events
