package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"astanon/internal/core/app"

	"github.com/charmbracelet/lipgloss"
)

const (
	ModeSummary  = "summary"
	ModeDetailed = "detailed"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	cachedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Render formats a run summary. Detailed mode lists every file; summary mode
// lists only failures.
func Render(s app.Summary, mode string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Anonymization Summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Files: %d  Renamed: %d  Unchanged: %d  Failed: %d  Time: %s\n",
		len(s.Files), s.Renamed, s.Cached, s.Failed, s.Duration.Round(1e6))

	for _, f := range s.Files {
		switch {
		case f.Err != nil:
			fmt.Fprintf(&b, "%s %s: %v\n", failureStyle.Render("FAIL"), displayPath(f.Source), f.Err)
		case mode != ModeDetailed:
		case f.Cached:
			fmt.Fprintf(&b, "%s %s\n", cachedStyle.Render("SKIP"), displayPath(f.Source))
		default:
			fmt.Fprintf(&b, "%s %s -> %s (%d renamed)\n",
				successStyle.Render("OK"), displayPath(f.Source), displayPath(f.Output), f.Renamed)
		}
	}
	return b.String()
}

func Write(w io.Writer, s app.Summary, mode string) error {
	_, err := io.WriteString(w, Render(s, mode))
	return err
}

func displayPath(path string) string {
	if rel, err := filepath.Rel(".", path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
