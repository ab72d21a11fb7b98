package tui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// DefaultSpinnerMessage is shown while results are collected.
const DefaultSpinnerMessage = "Collecting Data..."

// Spinner shows progress on stderr during long calls. A disabled spinner
// is a no-op so callers need not branch on quiet mode.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner writing to w. It is disabled when w is not
// a terminal or enabled is false.
func NewSpinner(w io.Writer, message string, enabled bool) *Spinner {
	if message == "" {
		message = DefaultSpinnerMessage
	}
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		enabled = false
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return &Spinner{s: s, enabled: enabled}
}

// Start begins animating.
func (s *Spinner) Start() {
	if s.enabled {
		s.s.Start()
	}
}

// Update replaces the message while running.
func (s *Spinner) Update(message string) {
	if s.enabled {
		s.s.Lock()
		s.s.Suffix = " " + message
		s.s.Unlock()
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	if s.enabled {
		s.s.Stop()
	}
}

// Enabled reports whether the spinner draws anything.
func (s *Spinner) Enabled() bool {
	return s.enabled
}

// Run starts the spinner, calls fn and stops it.
func (s *Spinner) Run(fn func()) {
	s.Start()
	defer s.Stop()
	fn()
}
