//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

// The step scripts are shell; the python3 shim hands them to /bin/sh.
// Each script records what it saw under the media root.
const (
	clipsScript = `read url
echo "$url" > "$CLIPSAI_MEDIA_DIR/url.txt"
echo "${PYANNOTE_AUTH_TOKEN-unset}" > "$CLIPSAI_MEDIA_DIR/token_clips.txt"
echo clip > "$CLIPSAI_MEDIA_DIR/clips/clip_1.mp4"
echo clip > "$CLIPSAI_MEDIA_DIR/clips/clip_2.mp4"
echo "created 2 clips"
`
	subtitlesScript = `echo "${PYANNOTE_AUTH_TOKEN-unset}" > "$CLIPSAI_MEDIA_DIR/token_subtitles.txt"
for f in "$CLIPSAI_MEDIA_DIR"/clips/clip_*.mp4; do
  b=${f##*/}
  b=${b%.mp4}
  echo sub > "$CLIPSAI_MEDIA_DIR/subtitles/${b}_subtitled.mp4"
done
`
	designScript = `echo "${PYANNOTE_AUTH_TOKEN-unset}" > "$CLIPSAI_MEDIA_DIR/token_design.txt"
echo "$@" > "$CLIPSAI_MEDIA_DIR/design_args.txt"
for f in "$CLIPSAI_MEDIA_DIR"/subtitles/*_subtitled.mp4; do
  b=${f##*/}
  b=${b%_subtitled.mp4}
  echo vert > "$CLIPSAI_MEDIA_DIR/designed/${b}_vertical.mp4"
done
`
	failScript = `echo "model download failed" >&2
exit 5
`
)

// project is a throwaway install: step scripts, tool shims and a media root.
type project struct {
	dir   string
	bin   string
	media string
}

func newProject(t *testing.T) project {
	t.Helper()
	tmp := t.TempDir()
	p := project{
		dir:   filepath.Join(tmp, "clipsai"),
		bin:   filepath.Join(tmp, "bin"),
		media: filepath.Join(tmp, "media"),
	}
	for _, d := range []string{p.dir, p.bin} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir fixture: %v", err)
		}
	}

	p.writeScript(t, "quicktest.py", clipsScript)
	p.writeScript(t, "subtitles.py", subtitlesScript)
	p.writeScript(t, "design.py", designScript)

	p.shim(t, "python3", "exec /bin/sh \"$@\"")
	p.shim(t, "ffmpeg", "exit 0")
	p.shim(t, "yt-dlp", "exit 0")
	return p
}

func (p project) writeScript(t *testing.T, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(p.dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (p project) shim(t *testing.T, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(p.bin, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write shim %s: %v", name, err)
	}
}

func (p project) removeShim(t *testing.T, name string) {
	t.Helper()
	if err := os.Remove(filepath.Join(p.bin, name)); err != nil {
		t.Fatalf("remove shim %s: %v", name, err)
	}
}

// args returns the flags pointing the CLI at this project.
func (p project) args(extra ...string) []string {
	return append([]string{"run", "--project-dir", p.dir, "--media-dir", p.media, "--plain"}, extra...)
}

// argsNoMedia leaves the media root to CLIPSAI_MEDIA_DIR or the default.
func (p project) argsNoMedia(extra ...string) []string {
	return append([]string{"run", "--project-dir", p.dir, "--plain"}, extra...)
}

// env restricts PATH to the shims, so absence checks cannot hit host tools.
func (p project) env() map[string]string {
	return map[string]string{"PATH": p.bin}
}

func (p project) read(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(p.media, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return strings.TrimSpace(string(b))
}

func (p project) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.media, rel))
	return err == nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

type cliRunResult struct {
	exitCode int
	output   string
}

func runCLI(t *testing.T, args []string, env map[string]string, stdin string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cliBin, args...)
	cmd.Dir = t.TempDir()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = mergeEnv(
		os.Environ(),
		map[string]string{
			"NO_COLOR":          "1",
			"TERM":              "dumb",
			"CLIPSAI_MEDIA_DIR": "",
		},
		env,
	)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: clipsai %s", cliTimeout, strings.Join(args, " "))
	}

	res := cliRunResult{output: string(out)}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}

	t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	return cliRunResult{}
}

func mergeEnv(base []string, overrides ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}

	for _, set := range overrides {
		for k, v := range set {
			env[k] = v
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}
