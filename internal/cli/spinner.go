package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress wraps a terminal spinner. A nil *Progress is valid and does nothing,
// which is what quiet mode hands out.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner writing to w with the given message.
// It returns nil when quiet is set.
func StartProgress(w io.Writer, quiet bool, message string) *Progress {
	if quiet {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Progress{s: s}
}

// Update replaces the spinner message.
func (p *Progress) Update(message string) {
	if p == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + message
	p.s.Unlock()
}

// Success stops the spinner and leaves a green final line.
func (p *Progress) Success(message string) {
	p.stop(text.FgGreen.Sprint(message) + "\n")
}

// Fail stops the spinner and leaves a red final line.
func (p *Progress) Fail(message string) {
	p.stop(text.FgRed.Sprint(message) + "\n")
}

// Stop stops the spinner without a final line.
func (p *Progress) Stop() {
	p.stop("")
}

func (p *Progress) stop(final string) {
	if p == nil {
		return
	}
	p.s.FinalMSG = final
	p.s.Stop()
}
