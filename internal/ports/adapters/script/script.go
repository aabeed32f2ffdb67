package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/forPelevin/clipsai/internal/types"
	"github.com/rs/zerolog"
)

// Adapter runs step programs with a Python interpreter.
type Adapter struct {
	python  string
	stdout  io.Writer
	stderr  io.Writer
	log     zerolog.Logger
	environ func() []string
}

func New(python string, stdout, stderr io.Writer, log zerolog.Logger) *Adapter {
	if python == "" {
		python = "python3"
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Adapter{python: python, stdout: stdout, stderr: stderr, log: log, environ: os.Environ}
}

func (a *Adapter) Invoke(ctx context.Context, inv types.Invocation) error {
	args := append([]string{inv.Program}, inv.Args...)
	cmd := exec.CommandContext(ctx, a.python, args...)
	cmd.Dir = inv.Dir
	cmd.Env = mergeEnv(a.environ(), inv.Env, inv.Unset)
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}
	cmd.Stdout = a.stdout
	cmd.Stderr = a.stderr

	a.log.Debug().
		Str("step", inv.Step).
		Str("dir", inv.Dir).
		Str("cmd", redactSecrets(commandLine(a.python, args), secretsOf(inv))).
		Msg("exec")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", inv.Step, ctx.Err())
		}
		return fmt.Errorf("%s: %w", inv.Step, err)
	}
	return nil
}

func mergeEnv(base, extra, unset []string) []string {
	drop := make(map[string]struct{}, len(unset)+len(extra))
	for _, k := range unset {
		drop[k] = struct{}{}
	}
	for _, kv := range extra {
		if i := strings.IndexByte(kv, '='); i > 0 {
			drop[kv[:i]] = struct{}{}
		}
	}

	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		i := strings.IndexByte(kv, '=')
		if i > 0 {
			if _, ok := drop[kv[:i]]; ok {
				continue
			}
		}
		out = append(out, kv)
	}
	return append(out, extra...)
}

func commandLine(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{bin}, args...) {
		if s == "" || strings.ContainsAny(s, " \t\"'") {
			s = fmt.Sprintf("%q", s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

var tokenFlagRE = regexp.MustCompile(`(--[a-z_]*token\s+)("[^"]*"|\S+)`)

func secretsOf(inv types.Invocation) []string {
	var out []string
	for _, kv := range inv.Env {
		k, v, ok := strings.Cut(kv, "=")
		if ok && v != "" && strings.HasSuffix(k, "_TOKEN") {
			out = append(out, v)
		}
	}
	return out
}

func redactSecrets(s string, secrets []string) string {
	out := s
	for _, sec := range secrets {
		if sec != "" {
			out = strings.ReplaceAll(out, sec, "[REDACTED]")
		}
	}
	return tokenFlagRE.ReplaceAllString(out, "${1}[REDACTED]")
}
