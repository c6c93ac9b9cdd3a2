package publish

import (
	"context"
	"sync"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// PublishCall records one PublishForecasts invocation.
type PublishCall struct {
	RunID string
	Rows  []model.ForecastRow
}

// Mock is a publisher used in tests. It records calls and can be told to
// fail.
type Mock struct {
	mu     sync.Mutex
	Calls  []PublishCall
	Err    error
	Closed bool
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) PublishForecasts(_ context.Context, runID string, rows []model.ForecastRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Calls = append(m.Calls, PublishCall{RunID: runID, Rows: rows})
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// CallCount returns the number of successful publishes.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
