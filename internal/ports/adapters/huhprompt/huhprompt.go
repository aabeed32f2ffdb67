// Package huhprompt asks questions with huh forms on an interactive terminal.
package huhprompt

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var ErrAborted = errors.New("prompt aborted")

var (
	accent = lipgloss.Color("#3097C6")
	muted  = lipgloss.Color("#AEA47A")
	alert  = lipgloss.Color("#D33061")
)

type Adapter struct {
	in         io.Reader
	out        io.Writer
	theme      *huh.Theme
	accessible bool
}

// New returns a prompter bound to in/out. Nil streams fall back to huh's
// defaults (stdin/stdout).
func New(in io.Reader, out io.Writer) *Adapter {
	return &Adapter{in: in, out: out, theme: Theme()}
}

// WithAccessible switches to huh's line-based mode for screen readers.
// Passwords still need a terminal there.
func (a *Adapter) WithAccessible(on bool) *Adapter {
	a.accessible = on
	return a
}

func (a *Adapter) Line(ctx context.Context, prompt string) (string, error) {
	var s string
	err := a.run(ctx, huh.NewInput().Title(prompt).Value(&s))
	return s, err
}

func (a *Adapter) Secret(ctx context.Context, prompt string) (string, error) {
	var s string
	err := a.run(ctx, huh.NewInput().Title(prompt).EchoMode(huh.EchoModePassword).Value(&s))
	return s, err
}

func (a *Adapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	err := a.run(ctx, huh.NewConfirm().
		Title(prompt).
		Affirmative("y").
		Negative("n").
		Value(&ok))
	return ok, err
}

func (a *Adapter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(a.theme).
		WithShowHelp(false).
		WithAccessible(a.accessible)
	if a.in != nil {
		form = form.WithInput(a.in)
	}
	if a.out != nil {
		form = form.WithOutput(a.out)
	}
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// Theme is a small variation on huh's base theme.
func Theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(accent).
		PaddingLeft(1)
	t.Focused.Title = lipgloss.NewStyle().Foreground(accent).Bold(true)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().Foreground(alert).Bold(true)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(alert)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(accent)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(muted)
	t.Focused.FocusedButton = lipgloss.NewStyle().
		Background(accent).
		Foreground(lipgloss.Color("#F3DBB2")).
		Bold(true).
		Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().
		Foreground(muted).
		Padding(0, 1)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(muted)
	return t
}
