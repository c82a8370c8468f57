package crawler

import (
	"errors"
	"fmt"
)

// ErrStopRequested is returned by status setters and stage functions when a
// cooperative stop has been requested. It is always absorbed at the
// pipeline boundary and never surfaced to external callers as a failure.
var ErrStopRequested = errors.New("stop requested")

// errNoData short-circuits the pipeline when preprocessing leaves nothing
// to infer on. Treated as a normal outcome, not a failure.
var errNoData = errors.New("no data to process")

// noDataMessage is the status message recorded for the empty-result outcome.
const noDataMessage = "No data to process."

// StageError couples a failed pipeline stage with its cause so the terminal
// status message names the stage that broke.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}
