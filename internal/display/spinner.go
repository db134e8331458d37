package display

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner is a busy indicator shown while waiting for the model
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinnerTo creates a spinner writing to w. Nothing is drawn unless w is a terminal.
func NewSpinnerTo(w io.Writer, msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	return &Spinner{s: s}
}

// Start begins animating
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop halts the animation and clears the line; safe to call repeatedly
func (sp *Spinner) Stop() {
	sp.s.Stop()
}

// UpdateMessage replaces the text shown after the spinner
func (sp *Spinner) UpdateMessage(msg string) {
	sp.s.Lock()
	sp.s.Suffix = " " + msg
	sp.s.Unlock()
}
