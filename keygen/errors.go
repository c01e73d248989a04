package keygen

import "fmt"

// TransientError marks a synthesis failure worth retrying: device OOM,
// driver faults, timeouts. The orchestrator retries these with backoff up to
// a fixed bound.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient resource failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transient resource failure: %s", e.Reason)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a synthesis failure that retrying cannot fix: a circuit
// that does not compile, unsupported parameters, a panic inside the backend.
// It aborts the affected circuit only; the run continues.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal synthesis failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fatal synthesis failure: %s", e.Reason)
}

func (e *FatalError) Unwrap() error { return e.Err }
