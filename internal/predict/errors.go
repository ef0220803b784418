package predict

import "errors"

// ErrModelUnavailable is returned for every request once startup failed.
var ErrModelUnavailable = errors.New("model not loaded")

// StartupError records why the model or the reference data could not be
// loaded. It is produced once and never retried.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return "startup failed loading " + e.Stage + ": " + e.Err.Error()
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// PredictionError wraps a failure raised by the model itself.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return "prediction failed: " + e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
