package timeseries

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned when Load receives no usable observations.
var ErrEmptyInput = errors.New("no observations to load")

// IntegrityError reports duplicate observations for the same station-hour
// carrying different demand values.
type IntegrityError struct {
	StationID string
	Timestamp time.Time
	Values    [2]float64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("conflicting demand for station %s at %s: %g vs %g",
		e.StationID, e.Timestamp.Format(time.RFC3339), e.Values[0], e.Values[1])
}
