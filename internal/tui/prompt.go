package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/auth"
)

// tokenPromptAttempts is the initial prompt plus one re-prompt after
// unparseable input.
const tokenPromptAttempts = 2

// TokenPrompt asks the operator to paste tokens from the Central UI.
type TokenPrompt struct {
	out         io.Writer
	styles      *Styles
	interactive func() bool
	ask         func(ctx context.Context, title, description string) (string, error)
}

var _ auth.TokenPrompter = (*TokenPrompt)(nil)

// NewTokenPrompt creates a prompt that writes its banner to out (stderr
// when nil).
func NewTokenPrompt(out io.Writer) *TokenPrompt {
	if out == nil {
		out = os.Stderr
	}
	return &TokenPrompt{
		out:         out,
		styles:      NewStyles(),
		interactive: IsInteractive,
		ask:         TextArea,
	}
}

// PromptTokens blocks until the operator enters a token pair.
func (p *TokenPrompt) PromptTokens(ctx context.Context, info auth.PromptInfo) (*auth.Credentials, error) {
	if !p.interactive() {
		return nil, auth.ErrNotInteractive
	}

	fmt.Fprintln(p.out, p.styles.RenderBanner("Tokens required for "+info.Account,
		[2]string{"Reason", info.Reason},
		[2]string{"Base URL", info.BaseURL},
		[2]string{"Customer ID", info.CustomerID},
		[2]string{"Client ID", info.ClientID},
	))
	fmt.Fprintln(p.out, p.styles.Muted.Render(
		"Generate tokens in Central under API Gateway > My Apps & Tokens and use Download Tokens."))

	var lastErr error
	for range tokenPromptAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input, err := p.ask(ctx, "Paste token JSON", `or "<access_token> <refresh_token>"`)
		if err != nil {
			return nil, err
		}
		creds, err := auth.ParseTokenInput(input)
		if err == nil {
			return creds, nil
		}
		lastErr = err
		fmt.Fprintln(p.out, p.styles.RenderStatus(false, err.Error()))
	}
	return nil, fmt.Errorf("manual token entry: %w", lastErr)
}
