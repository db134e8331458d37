// Package display renders chat output in the terminal: plain or glamour
// markdown responses, lipgloss-styled errors and tables, and a spinner while
// a model call is in flight.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	// errorStyle for the "Error:" label
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	// warnStyle for the "Warning:" label
	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	// dimStyle for muted text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// headerStyle for table headers
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81")).
			Padding(0, 1)

	// cellStyle for table cells
	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

var renderer *glamour.TermRenderer

// InitRenderer prepares the markdown renderer used by RenderMarkdown
func InitRenderer() error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	renderer = r
	return nil
}

// RenderMarkdown renders content with glamour, returning it unchanged when
// the renderer is not initialized or rendering fails
func RenderMarkdown(content string) string {
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// FormatError renders one error line
func FormatError(msg string) string {
	return errorStyle.Render("Error:") + " " + msg
}

// FormatWarning renders one warning line
func FormatWarning(msg string) string {
	return warnStyle.Render("Warning:") + " " + msg
}

// ShowError prints an error line to stderr
func ShowError(msg string) {
	fmt.Fprintln(os.Stderr, FormatError(msg))
}

// FormatTable renders rows under headers with a rounded border
func FormatTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// ShowTable prints a table to w
func ShowTable(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprintln(w, FormatTable(headers, rows))
}
