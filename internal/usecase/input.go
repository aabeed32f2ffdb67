package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/types"
)

const (
	PromptURL      = "Enter YouTube URL:"
	PromptUseToken = "Use a token for smart cropping? (y/n):"
	PromptToken    = "Enter your auth token:"
)

var ErrEmptyURL = errors.New("no URL provided")

// CollectRequest fills in whatever preset leaves empty by prompting.
// A preset token or skipToken skips the token question entirely.
func CollectRequest(ctx context.Context, p ports.Prompter, preset types.Request, skipToken bool) (types.Request, error) {
	req := types.Request{URL: strings.TrimSpace(preset.URL)}
	if req.URL == "" {
		if p == nil {
			return types.Request{}, ErrEmptyURL
		}
		u, err := p.Line(ctx, PromptURL)
		if err != nil {
			return types.Request{}, err
		}
		req.URL = strings.TrimSpace(u)
		if req.URL == "" {
			return types.Request{}, ErrEmptyURL
		}
	}

	if tok := strings.TrimSpace(preset.Token); tok != "" {
		req.UseToken, req.Token = true, tok
		return req, nil
	}
	if p == nil || skipToken {
		return req, nil
	}

	use, err := p.Confirm(ctx, PromptUseToken)
	if err != nil {
		return types.Request{}, err
	}
	if !use {
		return req, nil
	}
	tok, err := p.Secret(ctx, PromptToken)
	if err != nil {
		return types.Request{}, err
	}
	req.Token = strings.TrimSpace(tok)
	req.UseToken = req.Token != ""
	return req, nil
}
