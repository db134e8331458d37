package display

import (
	"fmt"
	"io"
	"os"
)

// Presenter is the terminal front end for the interpreter
type Presenter struct {
	out      io.Writer
	errOut   io.Writer
	render   bool
	spinner  *Spinner
	streamed bool
}

// NewPresenter creates a presenter writing responses to stdout and errors to stderr
func NewPresenter(render bool) *Presenter {
	return NewPresenterTo(os.Stdout, os.Stderr, render)
}

// NewPresenterTo creates a presenter with explicit writers
func NewPresenterTo(out, errOut io.Writer, render bool) *Presenter {
	return &Presenter{out: out, errOut: errOut, render: render}
}

// Print writes command output
func (p *Presenter) Print(text string) {
	fmt.Fprintln(p.out, text)
}

// Error writes one styled error line
func (p *Presenter) Error(err error) {
	fmt.Fprintln(p.errOut, FormatError(err.Error()))
}

// Warn writes one styled warning line
func (p *Presenter) Warn(msg string) {
	fmt.Fprintln(p.errOut, FormatWarning(msg))
}

// Table writes a bordered table
func (p *Presenter) Table(headers []string, rows [][]string) {
	ShowTable(p.out, headers, rows)
}

// Busy starts the spinner for a model call
func (p *Presenter) Busy(msg string) {
	p.Idle()
	p.streamed = false
	p.spinner = NewSpinnerTo(p.errOut, msg)
	p.spinner.Start()
}

// Chunk writes a streamed fragment. With rendering on, fragments are only
// collected by the caller and the spinner keeps running.
func (p *Presenter) Chunk(content string) {
	if !p.streamed {
		p.streamed = true
		if p.render {
			if p.spinner != nil {
				p.spinner.UpdateMessage("Receiving...")
			}
		} else {
			p.Idle()
		}
	}
	if !p.render {
		fmt.Fprint(p.out, content)
	}
}

// Idle stops the spinner
func (p *Presenter) Idle() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}

// Completion finishes a response. Streamed plain text has already been
// written, so only the trailing newline is added.
func (p *Presenter) Completion(content string) {
	p.Idle()
	switch {
	case p.render:
		fmt.Fprintln(p.out, RenderMarkdown(content))
	case p.streamed:
		fmt.Fprintln(p.out)
	default:
		fmt.Fprintln(p.out, content)
	}
	p.streamed = false
}
