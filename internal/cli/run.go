package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/pipeline"
	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/ports/adapters/huhprompt"
	"github.com/forPelevin/clipsai/internal/ports/adapters/lineprompt"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	envProjectDir = "CLIPSAI_PROJECT_DIR"
	envMediaDir   = "CLIPSAI_MEDIA_DIR"
	envPython     = "CLIPSAI_PYTHON"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Download, clip, subtitle and reframe one video",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runE,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("url", "", "YouTube URL (prompted when empty)")
	f.String("token", "", "Diarization token for smart cropping")
	f.Bool("no-token", false, "Skip the token question")
	f.String("project-dir", "", "Directory holding the step scripts (default: executable dir)")
	f.String("media-dir", "", "Media root (default: parent of project dir)")
	f.String("python", "", "Python interpreter (default python3)")
	f.Bool("plain", false, "Use plain line prompts even on a terminal")
	f.Duration("timeout", 0, "Bound the whole run (0 = none)")
}

func runE(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	noToken, _ := cmd.Flags().GetBool("no-token")
	projectDir, _ := cmd.Flags().GetString("project-dir")
	mediaDir, _ := cmd.Flags().GetString("media-dir")
	python, _ := cmd.Flags().GetString("python")
	plain, _ := cmd.Flags().GetBool("plain")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if projectDir == "" {
		projectDir = os.Getenv(envProjectDir)
	}
	if projectDir == "" {
		dir, err := layout.DefaultProjectDir()
		if err != nil {
			return err
		}
		projectDir = dir
	}
	if mediaDir == "" {
		mediaDir = os.Getenv(envMediaDir)
	}
	if python == "" {
		python = getenvDefault(envPython, "python3")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := newLogger(cmd.ErrOrStderr())
	cfg := pipeline.Config{
		ProjectDir: projectDir,
		MediaDir:   mediaDir,
		Python:     python,

		URL:     url,
		Token:   token,
		NoToken: noToken,

		Prompter: newPrompter(os.Stdin, cmd.OutOrStdout(), plain),
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
		Log:      log,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	start := time.Now()
	l, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(start).Round(time.Second)).Msg("all steps completed")
	return writeSummary(cmd.OutOrStdout(), l)
}

// newPrompter picks huh forms on a terminal and line prompts otherwise.
func newPrompter(in *os.File, out io.Writer, plain bool) ports.Prompter {
	fd := in.Fd()
	if plain || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		return lineprompt.New(in, out)
	}
	return huhprompt.New(nil, nil).WithAccessible(os.Getenv("ACCESSIBLE") != "")
}
