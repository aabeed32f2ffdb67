// Package lineprompt asks questions over a plain line-oriented stream.
// It is used when stdin is not a terminal.
package lineprompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Adapter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Adapter {
	return &Adapter{in: bufio.NewReader(in), out: out}
}

// Line prints prompt and reads one line. EOF ends the answer; an empty
// stream yields "".
func (a *Adapter) Line(_ context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(a.out, prompt+" "); err != nil {
		return "", err
	}
	s, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (a *Adapter) Secret(ctx context.Context, prompt string) (string, error) {
	return a.Line(ctx, prompt)
}

// Confirm is true only for a case-insensitive "y".
func (a *Adapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	s, err := a.Line(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(s), "y"), nil
}
