package forecast

import "errors"

// ErrNotFitted indicates predict was invoked without a fitted model.
var ErrNotFitted = errors.New("model not fitted")

// ErrInsufficientHistory indicates a scope had too few training rows to fit.
var ErrInsufficientHistory = errors.New("insufficient training history")
