package usecase

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/preflight"
	"github.com/forPelevin/clipsai/internal/domain/steps"
	"github.com/forPelevin/clipsai/internal/types"
)

func TestRun_ExampleScenario(t *testing.T) {
	tmp := t.TempDir()
	projectDir := filepath.Join(tmp, "clipsai")

	inv := &fakeInvoker{}
	var states []types.State
	uc := New(Deps{
		Invoker:  inv,
		Prompter: &fakePrompter{lines: []string{"https://youtu.be/abc"}, confirm: false},
		Lookup:   allPresent{},
		Steps:    steps.Pipeline(),
	})

	res, err := uc.Run(context.Background(), Input{
		ProjectDir: projectDir,
		Required:   preflight.Required(""),
		OnState:    func(s types.State) { states = append(states, s) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Layout.MediaDir != tmp {
		t.Fatalf("expected media root %s, got %s", tmp, res.Layout.MediaDir)
	}
	if len(inv.calls) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(inv.calls))
	}
	if inv.calls[0].Stdin != "https://youtu.be/abc\n" || len(inv.calls[0].Args) != 0 {
		t.Fatalf("unexpected step 1 invocation: %+v", inv.calls[0])
	}
	wantDesign := []string{"--subs_mode", "auto", "--subs_dir", filepath.Join(tmp, layout.SubsName)}
	if !reflect.DeepEqual(inv.calls[2].Args, wantDesign) {
		t.Fatalf("step 3 args = %v, want %v", inv.calls[2].Args, wantDesign)
	}
	for _, c := range inv.calls {
		for _, kv := range c.Env {
			if strings.HasPrefix(kv, steps.EnvToken+"=") {
				t.Fatalf("token env leaked into %s", c.Step)
			}
		}
	}

	wantStates := []types.State{
		types.StateResolvingPaths,
		types.StateCollectingInput,
		types.StatePreflighting,
		types.StateRunningStep1,
		types.StateRunningStep2,
		types.StateRunningStep3,
		types.StateDone,
	}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("states = %v, want %v", states, wantStates)
	}
}

func TestRun_TokenAccepted(t *testing.T) {
	tmp := t.TempDir()
	inv := &fakeInvoker{}
	uc := New(Deps{
		Invoker:  inv,
		Prompter: &fakePrompter{lines: []string{"https://youtu.be/abc"}, confirm: true, secret: "hf_secret"},
		Lookup:   allPresent{},
		Steps:    steps.Pipeline(),
	})

	if _, err := uc.Run(context.Background(), Input{ProjectDir: filepath.Join(tmp, "clipsai")}); err != nil {
		t.Fatalf("run: %v", err)
	}
	args := inv.calls[2].Args
	if len(args) < 2 || args[len(args)-2] != "--pyannote_token" || args[len(args)-1] != "hf_secret" {
		t.Fatalf("expected token flag at end of step 3 args, got %v", args)
	}
	for _, c := range inv.calls {
		found := false
		for _, kv := range c.Env {
			if kv == steps.EnvToken+"=hf_secret" {
				found = true
			}
		}
		if !found {
			t.Fatalf("token env missing for %s", c.Step)
		}
	}
}

func TestRun_EmptyURLAbortsBeforeInvoking(t *testing.T) {
	for _, url := range []string{"", "   ", "\t\n"} {
		inv := &fakeInvoker{}
		lk := &countingLookup{}
		var last types.State
		uc := New(Deps{
			Invoker:  inv,
			Prompter: &fakePrompter{lines: []string{url}},
			Lookup:   lk,
			Steps:    steps.Pipeline(),
		})
		_, err := uc.Run(context.Background(), Input{
			ProjectDir: filepath.Join(t.TempDir(), "clipsai"),
			Required:   preflight.Required(""),
			OnState:    func(s types.State) { last = s },
		})
		if !errors.Is(err, ErrEmptyURL) {
			t.Fatalf("url %q: expected ErrEmptyURL, got %v", url, err)
		}
		if len(inv.calls) != 0 || lk.n != 0 {
			t.Fatalf("url %q: expected no invocations or lookups, got %d/%d", url, len(inv.calls), lk.n)
		}
		if last != types.StateAborted {
			t.Fatalf("expected aborted state, got %s", last)
		}
	}
}

func TestRun_MissingDependencyAbortsBeforeSteps(t *testing.T) {
	inv := &fakeInvoker{}
	uc := New(Deps{
		Invoker:  inv,
		Prompter: &fakePrompter{lines: []string{"https://youtu.be/abc"}},
		Lookup:   missing{name: "yt-dlp"},
		Steps:    steps.Pipeline(),
	})
	_, err := uc.Run(context.Background(), Input{
		ProjectDir: filepath.Join(t.TempDir(), "clipsai"),
		Required:   preflight.Required(""),
	})
	var depErr *preflight.DependencyError
	if !errors.As(err, &depErr) || depErr.Name != "yt-dlp" {
		t.Fatalf("expected yt-dlp DependencyError, got %v", err)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("expected no invocations, got %d", len(inv.calls))
	}
}

func TestRun_StepFailureStopsSequence(t *testing.T) {
	inv := &fakeInvoker{failAt: 1, failErr: exitErr{code: 7}}
	uc := New(Deps{
		Invoker:  inv,
		Prompter: &fakePrompter{lines: []string{"https://youtu.be/abc"}},
		Lookup:   allPresent{},
		Steps:    steps.Pipeline(),
	})
	_, err := uc.Run(context.Background(), Input{ProjectDir: filepath.Join(t.TempDir(), "clipsai")})

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != "subtitles" || stepErr.Index != 1 || stepErr.ExitCode != 7 {
		t.Fatalf("unexpected step error: %+v", stepErr)
	}
	if len(inv.calls) != 2 {
		t.Fatalf("expected step 3 not to run, got %d calls", len(inv.calls))
	}
}

func TestRun_MediaOverride(t *testing.T) {
	tmp := t.TempDir()
	media := filepath.Join(tmp, "media")
	uc := New(Deps{
		Invoker: &fakeInvoker{},
		Lookup:  allPresent{},
		Steps:   steps.Pipeline(),
	})
	res, err := uc.Run(context.Background(), Input{
		ProjectDir:    filepath.Join(tmp, "app", "clipsai"),
		MediaOverride: media,
		Preset:        types.Request{URL: "https://youtu.be/abc"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, d := range res.Layout.StageDirs() {
		if filepath.Dir(d) != media {
			t.Fatalf("expected %s under %s", d, media)
		}
	}
}

func TestRunSteps_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &fakeInvoker{}
	uc := New(Deps{Invoker: inv})
	err := uc.RunSteps(ctx, types.Request{URL: "u"}, types.Layout{}, steps.Pipeline())

	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.ExitCode != -1 {
		t.Fatalf("expected StepError without exit code, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("expected no invocations, got %d", len(inv.calls))
	}
}

type fakeInvoker struct {
	calls   []types.Invocation
	failAt  int
	failErr error
}

func (f *fakeInvoker) Invoke(_ context.Context, inv types.Invocation) error {
	f.calls = append(f.calls, inv)
	if f.failErr != nil && len(f.calls)-1 == f.failAt {
		return f.failErr
	}
	return nil
}

type exitErr struct{ code int }

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return e.code }

type fakePrompter struct {
	lines   []string
	confirm bool
	secret  string
	asked   []string
}

func (f *fakePrompter) Line(_ context.Context, prompt string) (string, error) {
	f.asked = append(f.asked, prompt)
	if len(f.lines) == 0 {
		return "", nil
	}
	s := f.lines[0]
	f.lines = f.lines[1:]
	return s, nil
}

func (f *fakePrompter) Secret(_ context.Context, prompt string) (string, error) {
	f.asked = append(f.asked, prompt)
	return f.secret, nil
}

func (f *fakePrompter) Confirm(_ context.Context, prompt string) (bool, error) {
	f.asked = append(f.asked, prompt)
	return f.confirm, nil
}

type allPresent struct{}

func (allPresent) LookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

type missing struct{ name string }

func (m missing) LookPath(name string) (string, error) {
	if name == m.name {
		return "", exec.ErrNotFound
	}
	return "/usr/bin/" + name, nil
}

type countingLookup struct{ n int }

func (c *countingLookup) LookPath(name string) (string, error) {
	c.n++
	return "/usr/bin/" + name, nil
}
