package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/preflight"
	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/types"
)

// StepError reports a step that failed. ExitCode is -1 when the program
// did not exit normally (not found, killed, cancelled).
type StepError struct {
	Step     string
	Index    int
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("step %d (%s) exited with status %d", e.Index+1, e.Step, e.ExitCode)
	}
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Deps struct {
	Invoker  ports.Invoker
	Prompter ports.Prompter
	Lookup   ports.PathLookup
	Steps    []ports.Step
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	ProjectDir    string
	MediaOverride string
	Required      []string
	OnState       func(types.State)

	// Preset holds values supplied without prompting (flags).
	Preset    types.Request
	SkipToken bool
}

type Result struct {
	Layout  types.Layout
	Request types.Request
}

// Run walks ResolvingPaths -> CollectingInput -> Preflighting -> steps -> Done.
// Any error moves the run to Aborted and is returned unchanged.
func (u Usecase) Run(ctx context.Context, in Input) (res Result, err error) {
	onState := in.OnState
	if onState == nil {
		onState = func(types.State) {}
	}
	defer func() {
		if err != nil {
			onState(types.StateAborted)
		}
	}()

	onState(types.StateResolvingPaths)
	l, err := layout.Resolve(in.ProjectDir, in.MediaOverride)
	if err != nil {
		return Result{}, err
	}
	if err := layout.Ensure(l); err != nil {
		return Result{}, err
	}
	res.Layout = l

	onState(types.StateCollectingInput)
	req, err := CollectRequest(ctx, u.d.Prompter, in.Preset, in.SkipToken)
	if err != nil {
		return res, err
	}
	res.Request = req

	onState(types.StatePreflighting)
	if err := preflight.Check(u.d.Lookup, in.Required); err != nil {
		return res, err
	}

	if err := u.runSteps(ctx, req, l, u.d.Steps, onState); err != nil {
		return res, err
	}
	onState(types.StateDone)
	return res, nil
}

// RunSteps invokes steps in order and stops at the first failure.
func (u Usecase) RunSteps(ctx context.Context, req types.Request, l types.Layout, steps []ports.Step) error {
	return u.runSteps(ctx, req, l, steps, func(types.State) {})
}

func (u Usecase) runSteps(ctx context.Context, req types.Request, l types.Layout, steps []ports.Step, onState func(types.State)) error {
	for i, s := range steps {
		onState(types.RunningStep(i))
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.Name(), Index: i, ExitCode: -1, Err: err}
		}
		if err := u.d.Invoker.Invoke(ctx, s.Invocation(req, l)); err != nil {
			return &StepError{Step: s.Name(), Index: i, ExitCode: exitCode(err), Err: err}
		}
	}
	return nil
}

func exitCode(err error) int {
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
