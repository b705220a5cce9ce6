package stage

import "fmt"

// LoadError reports a stage-type name with no registered implementation.
type LoadError struct {
	Name string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("no stage implementation registered for %q", e.Name)
}

// ProcessingError wraps a failure of a single Process invocation. It is
// scoped to the offending frame: the runner drops the frame, reports the
// error and keeps the worker alive.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("stage %q: process frame: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
