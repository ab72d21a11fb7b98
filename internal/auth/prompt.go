package auth

import (
	"context"
	"errors"
)

// ErrNotInteractive is returned by prompters when no terminal is attached.
var ErrNotInteractive = errors.New("manual token entry requires an interactive terminal")

// PromptInfo tells the operator which account needs new tokens.
type PromptInfo struct {
	Account    string
	BaseURL    string
	CustomerID string
	ClientID   string
	Reason     string
}

// TokenPrompter blocks until the operator supplies a token pair.
type TokenPrompter interface {
	PromptTokens(ctx context.Context, info PromptInfo) (*Credentials, error)
}

// NoPrompt is a TokenPrompter for non-interactive runs.
type NoPrompt struct{}

// PromptTokens always fails with ErrNotInteractive.
func (NoPrompt) PromptTokens(context.Context, PromptInfo) (*Credentials, error) {
	return nil, ErrNotInteractive
}
