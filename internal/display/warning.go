package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related spec files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected file:\n")
		} else {
			b.WriteString("    Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnDiagnostics summarizes collection diagnostics, listing each affected
// spec file once in first-seen order.
func WarnDiagnostics(count int, files []string) Warning {
	seen := make(map[string]bool, len(files))
	var unique []string
	for _, f := range files {
		if f != "" && !seen[f] {
			seen[f] = true
			unique = append(unique, f)
		}
	}

	title := fmt.Sprintf("%d collection diagnostic", count)
	if count != 1 {
		title += "s"
	}
	return Warning{
		Title:      title,
		Files:      unique,
		Suggestion: "Declare 'design' and 'issues' at the top level of the spec file or in each requirement block",
	}
}
