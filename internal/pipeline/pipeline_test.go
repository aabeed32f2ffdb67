package pipeline

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/preflight"
	"github.com/forPelevin/clipsai/internal/types"
	"github.com/rs/zerolog"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok with url", Config{ProjectDir: "/p", Python: "python3", URL: "u"}, false},
		{"no project", Config{Python: "python3", URL: "u"}, true},
		{"no python", Config{ProjectDir: "/p", URL: "u"}, true},
		{"no url no prompter", Config{ProjectDir: "/p", Python: "python3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_CreatesLayoutAndRunsSteps(t *testing.T) {
	tmp := t.TempDir()
	media := filepath.Join(tmp, "media")
	inv := &recordingInvoker{}

	l, err := Run(context.Background(), Config{
		ProjectDir: filepath.Join(tmp, "clipsai"),
		MediaDir:   media,
		Python:     "python3",
		URL:        "https://youtu.be/abc",
		NoToken:    true,
		Log:        zerolog.Nop(),
		Invoker:    inv,
		Lookup:     presentLookup{},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{layout.VideosName, layout.ClipsName, layout.SubsName, layout.DesignedName} {
		if st, err := os.Stat(filepath.Join(media, name)); err != nil || !st.IsDir() {
			t.Fatalf("expected %s under media root, err=%v", name, err)
		}
	}
	if l.MediaDir != media {
		t.Fatalf("unexpected media dir: %s", l.MediaDir)
	}
	if len(inv.steps) != 3 {
		t.Fatalf("expected 3 steps, got %v", inv.steps)
	}
}

func TestRun_MissingPythonNamed(t *testing.T) {
	tmp := t.TempDir()
	inv := &recordingInvoker{}
	l, err := Run(context.Background(), Config{
		ProjectDir: filepath.Join(tmp, "clipsai"),
		Python:     "python3.99",
		URL:        "https://youtu.be/abc",
		Log:        zerolog.Nop(),
		Invoker:    inv,
		Lookup:     absentLookup{},
	})
	var depErr *preflight.DependencyError
	if !errors.As(err, &depErr) || depErr.Name != "python3.99" {
		t.Fatalf("expected python3.99 DependencyError, got %v", err)
	}
	if len(inv.steps) != 0 {
		t.Fatalf("expected no steps, got %v", inv.steps)
	}
	if l.MediaDir != tmp {
		t.Fatalf("expected layout even on failure, got %+v", l)
	}
}

type recordingInvoker struct{ steps []string }

func (r *recordingInvoker) Invoke(_ context.Context, inv types.Invocation) error {
	r.steps = append(r.steps, inv.Step)
	return nil
}

type presentLookup struct{}

func (presentLookup) LookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

type absentLookup struct{}

func (absentLookup) LookPath(string) (string, error) { return "", exec.ErrNotFound }
