package ports

import (
	"context"
	"time"

	"github.com/forPelevin/clipsai/internal/types"
)

// Step describes one pipeline phase as an external invocation.
type Step interface {
	Name() string
	Invocation(req types.Request, l types.Layout) types.Invocation
}

type Invoker interface {
	Invoke(ctx context.Context, inv types.Invocation) error
}

type Prompter interface {
	Line(ctx context.Context, prompt string) (string, error)
	Secret(ctx context.Context, prompt string) (string, error)
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type PathLookup interface {
	LookPath(name string) (string, error)
}

type MediaProbe interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}
