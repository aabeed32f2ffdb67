// Package steps describes the three external pipeline programs as
// invocations. Nothing here runs a process.
package steps

import (
	"path/filepath"
	"strconv"

	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/types"
)

const (
	ClipsScript     = "quicktest.py"
	SubtitlesScript = "subtitles.py"
	DesignScript    = "design.py"

	EnvMediaDir = "CLIPSAI_MEDIA_DIR"
	EnvToken    = "PYANNOTE_AUTH_TOKEN"
)

// Clips downloads the source video and cuts clips. The URL goes on stdin.
type Clips struct{}

func (Clips) Name() string { return "clips" }

func (Clips) Invocation(req types.Request, l types.Layout) types.Invocation {
	inv := base("clips", ClipsScript, req, l)
	inv.Stdin = req.URL + "\n"
	return inv
}

// Subtitles transcribes clips into subtitle files using its own defaults.
type Subtitles struct{}

func (Subtitles) Name() string { return "subtitles" }

func (Subtitles) Invocation(req types.Request, l types.Layout) types.Invocation {
	return base("subtitles", SubtitlesScript, req, l)
}

// DesignOptions extends the design invocation. The zero value yields
// "--subs_mode auto --subs_dir <dir>". DisableSubtitles switches to
// "--subs_mode off", CropExpansion is passed when > 0 and ExplicitDirs adds
// --input_dir and --output_dir.
type DesignOptions struct {
	DisableSubtitles bool
	CropExpansion    float64
	DisableSmartCrop bool
	ExplicitDirs     bool
}

// Design renders vertical clips and burns captions in.
type Design struct {
	Opts DesignOptions
}

func (Design) Name() string { return "design" }

func (d Design) Invocation(req types.Request, l types.Layout) types.Invocation {
	inv := base("design", DesignScript, req, l)

	var args []string
	if d.Opts.ExplicitDirs {
		args = append(args, "--input_dir", l.ClipsDir, "--output_dir", l.DesignedDir)
	}
	if d.Opts.CropExpansion > 0 {
		args = append(args, "--crop_expansion", strconv.FormatFloat(d.Opts.CropExpansion, 'f', -1, 64))
	}
	if d.Opts.DisableSmartCrop {
		args = append(args, "--disable_smart_crop")
	}
	if d.Opts.DisableSubtitles {
		args = append(args, "--subs_mode", "off")
	} else {
		args = append(args, "--subs_mode", "auto", "--subs_dir", l.SubsDir)
	}
	if req.HasToken() {
		args = append(args, "--pyannote_token", req.Token)
	}
	inv.Args = args
	return inv
}

// Pipeline is the fixed CLI order.
func Pipeline() []ports.Step {
	return []ports.Step{Clips{}, Subtitles{}, Design{}}
}

func base(name, script string, req types.Request, l types.Layout) types.Invocation {
	inv := types.Invocation{
		Step:    name,
		Program: filepath.Join(l.ProjectDir, script),
		Env:     []string{EnvMediaDir + "=" + l.MediaDir},
		Dir:     l.ProjectDir,
	}
	if req.HasToken() {
		inv.Env = append(inv.Env, EnvToken+"="+req.Token)
	} else {
		inv.Unset = []string{EnvToken}
	}
	return inv
}
