package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/forPelevin/clipsai/internal/domain/preflight"
	"github.com/forPelevin/clipsai/internal/domain/steps"
	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/ports/adapters/lookpath"
	"github.com/forPelevin/clipsai/internal/ports/adapters/script"
	"github.com/forPelevin/clipsai/internal/types"
	"github.com/forPelevin/clipsai/internal/usecase"
	"github.com/rs/zerolog"
)

type Config struct {
	ProjectDir string
	// MediaDir overrides the media root; empty means parent of ProjectDir.
	MediaDir string
	Python   string

	URL     string
	Token   string
	NoToken bool

	// Prompter asks for whatever URL/Token leave open. Nil disables prompting.
	Prompter ports.Prompter
	Stdout   io.Writer
	Stderr   io.Writer
	Log      zerolog.Logger

	// Invoker and Lookup replace the exec adapters when set.
	Invoker ports.Invoker
	Lookup  ports.PathLookup
}

func (c Config) Validate() error {
	if c.ProjectDir == "" {
		return errors.New("project dir is empty")
	}
	if c.Python == "" {
		return errors.New("python interpreter is empty")
	}
	if c.URL == "" && c.Prompter == nil {
		return errors.New("url is required when prompting is disabled")
	}
	return nil
}

// Run executes the full pipeline and returns the resolved layout, which is
// also set when the run fails after path resolution.
func Run(ctx context.Context, cfg Config) (types.Layout, error) {
	log := cfg.Log

	inv := cfg.Invoker
	if inv == nil {
		inv = script.New(cfg.Python, cfg.Stdout, cfg.Stderr, log)
	}
	var lookup ports.PathLookup = lookpath.New()
	if cfg.Lookup != nil {
		lookup = cfg.Lookup
	}

	uc := usecase.New(usecase.Deps{
		Invoker:  inv,
		Prompter: cfg.Prompter,
		Lookup:   lookup,
		Steps:    steps.Pipeline(),
	})

	res, err := uc.Run(ctx, usecase.Input{
		ProjectDir:    cfg.ProjectDir,
		MediaOverride: cfg.MediaDir,
		Required:      preflight.Required(cfg.Python),
		OnState: func(s types.State) {
			ev := log.Info()
			if s == types.StateAborted {
				ev = log.Warn()
			}
			ev.Str("state", s.String()).Msg("pipeline")
		},
		Preset:    types.Request{URL: cfg.URL, Token: cfg.Token},
		SkipToken: cfg.NoToken,
	})
	if err != nil {
		return res.Layout, err
	}
	log.Debug().
		Str("media", res.Layout.MediaDir).
		Bool("token", res.Request.HasToken()).
		Msg("pipeline finished")
	return res.Layout, nil
}

var _ ports.Invoker = (*script.Adapter)(nil)
var _ ports.PathLookup = lookpath.Adapter{}
