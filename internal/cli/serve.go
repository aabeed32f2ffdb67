package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/steps"
	"github.com/forPelevin/clipsai/internal/jobs"
	"github.com/forPelevin/clipsai/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipsai/internal/server"
	"github.com/spf13/cobra"
)

const (
	envDB           = "CLIPSAI_DB"
	shutdownTimeout = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Expose the pipeline steps over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         serveE,
	}
	f := cmd.Flags()
	f.String("addr", ":5000", "Listen address")
	f.String("db", "", "Job database path (default: <media root>/clipsai.db)")
	f.String("project-dir", "", "Directory holding the step scripts (default: executable dir)")
	f.String("media-dir", "", "Media root (default: parent of project dir)")
	f.String("python", "", "Python interpreter (default python3)")
	return cmd
}

func serveE(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	dbPath, _ := cmd.Flags().GetString("db")
	projectDir, _ := cmd.Flags().GetString("project-dir")
	mediaDir, _ := cmd.Flags().GetString("media-dir")
	python, _ := cmd.Flags().GetString("python")

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

	l, err := layout.Resolve(projectDir, mediaDir)
	if err != nil {
		return err
	}
	if err := layout.Ensure(l); err != nil {
		return err
	}

	if dbPath == "" {
		dbPath = getenvDefault(envDB, filepath.Join(l.MediaDir, "clipsai.db"))
	}
	store, err := jobs.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	log := newLogger(cmd.ErrOrStderr())
	srv := server.New(server.Config{
		Layout: l,
		Python: python,
		Token:  os.Getenv(steps.EnvToken),
		Jobs:   store,
		Probe:  ffmpeg.NewProbe("ffprobe"),
		Log:    log,
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("media", l.MediaDir).
			Str("db", dbPath).
			Bool("pyannote", os.Getenv(steps.EnvToken) != "").
			Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
