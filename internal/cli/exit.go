package cli

import (
	"errors"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/preflight"
	"github.com/forPelevin/clipsai/internal/usecase"
)

const (
	exitFailure    = 1
	exitEmptyURL   = 2
	exitMissingDep = 3
	exitDirCreate  = 4
)

// exitCode maps a run error to the process exit status. A failed step
// passes its own status through.
func exitCode(err error) int {
	var (
		depErr  *preflight.DependencyError
		dirErr  *layout.DirError
		stepErr *usecase.StepError
	)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, usecase.ErrEmptyURL):
		return exitEmptyURL
	case errors.As(err, &depErr):
		return exitMissingDep
	case errors.As(err, &dirErr):
		return exitDirCreate
	case errors.As(err, &stepErr) && stepErr.ExitCode > 0:
		return stepErr.ExitCode
	}
	return exitFailure
}
