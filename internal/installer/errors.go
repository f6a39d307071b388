package installer

import (
	"fmt"

	"github.com/specialistvlad/gridkit/internal/di"
)

// ModuleInstallationError reports the module whose Install failed. Modules
// installed before it stay installed.
type ModuleInstallationError struct {
	ID       di.Identifier
	Priority int
	Err      error
}

func (e *ModuleInstallationError) Error() string {
	return fmt.Sprintf("install module '%s' (priority %d): %v", e.ID, e.Priority, e.Err)
}

func (e *ModuleInstallationError) Unwrap() error { return e.Err }

// DuplicateInstallationError is returned when a module identifier would be
// installed a second time into the same host.
type DuplicateInstallationError struct {
	ID di.Identifier
}

func (e *DuplicateInstallationError) Error() string {
	return fmt.Sprintf("module '%s' is already installed", e.ID)
}
