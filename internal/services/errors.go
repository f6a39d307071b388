package services

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gridkit/internal/di"
)

// StartError reports the service whose start hook failed.
type StartError struct {
	ID  di.Identifier
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start service '%s': %v", e.ID, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// StopFailure is a single failed stop hook.
type StopFailure struct {
	ID  di.Identifier
	Err error
}

// ShutdownError aggregates every stop hook that failed during StopAll.
type ShutdownError struct {
	Failures []StopFailure
}

func (e *ShutdownError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("'%s': %v", f.ID, f.Err)
	}
	return fmt.Sprintf("%d service(s) failed to stop: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ShutdownError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
