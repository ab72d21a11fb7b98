package tui

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/term"
)

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("prompt canceled")

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}

// Confirm shows a yes/no confirmation prompt. Without a terminal it
// returns defaultValue.
func Confirm(ctx context.Context, message string, defaultValue bool) (bool, error) {
	if !IsInteractive() {
		return defaultValue, nil
	}
	result := defaultValue
	field := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result)
	if err := runField(ctx, field); err != nil {
		return false, err
	}
	return result, nil
}

// ConfirmDangerous shows a confirmation prompt for actions that cannot be
// undone. It defaults to no and refuses without a terminal.
func ConfirmDangerous(ctx context.Context, message string) (bool, error) {
	if !IsInteractive() {
		return false, nil
	}
	var result bool
	field := huh.NewConfirm().
		Title(message).
		Description("This action cannot be undone.").
		Affirmative("Yes, I'm sure").
		Negative("Cancel").
		Value(&result)
	if err := runField(ctx, field); err != nil {
		return false, err
	}
	return result, nil
}

// TextArea shows a multiline text prompt.
func TextArea(ctx context.Context, title, description string) (string, error) {
	var result string
	field := huh.NewText().
		Title(title).
		Description(description).
		Value(&result)
	if err := runField(ctx, field); err != nil {
		return "", err
	}
	return result, nil
}

func runField(ctx context.Context, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}
