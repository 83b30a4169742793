package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/harrison/reqtrace/internal/models"
)

// DocLookup resolves a design token to a document title.
type DocLookup func(token string) (title string, ok bool)

// Formats accepted by Write.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ValidFormat reports whether format is one of text, yaml or json.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatYAML, FormatJSON:
		return true
	}
	return false
}

// Write renders groups in the requested format. lookup only affects text.
func Write(w io.Writer, format string, groups *models.Groups, lookup DocLookup) error {
	switch format {
	case FormatText, "":
		return WriteText(w, groups, lookup)
	case FormatYAML:
		return WriteYAML(w, groups)
	case FormatJSON:
		return WriteJSON(w, groups)
	default:
		return fmt.Errorf("unknown output format %q (want text, yaml or json)", format)
	}
}

// WriteText prints each group followed by its labeled requirements. When
// lookup is non-nil, resolved design documents are listed with their title.
func WriteText(w io.Writer, groups *models.Groups, lookup DocLookup) error {
	bold := color.New(color.Bold)
	label := color.New(color.FgCyan)

	var b strings.Builder
	for _, group := range groups.Groups() {
		bold.Fprintf(&b, "%s\n", group.Name)
		for _, req := range group.Requirements {
			b.WriteString("  ")
			label.Fprintf(&b, "[%s]", req.Label)
			b.WriteString(" ")
			b.WriteString(indent(req.String(), "  "))
			b.WriteString("\n")

			if lookup == nil {
				continue
			}
			for _, token := range req.Design {
				if title, ok := lookup(token); ok {
					fmt.Fprintf(&b, "      %s: %s\n", token, title)
				} else {
					fmt.Fprintf(&b, "      %s: %s\n", token, color.RedString("not found"))
				}
			}
		}
	}
	fmt.Fprintf(&b, "%d requirement%s in %d group%s\n", groups.Count(), plural(groups.Count()), groups.Len(), plural(groups.Len()))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteYAML encodes groups as a YAML list of {group, requirements}.
func WriteYAML(w io.Writer, groups *models.Groups) error {
	return EncodeYAML(w, groups)
}

// WriteJSON encodes groups as an indented JSON list of {group, requirements}.
func WriteJSON(w io.Writer, groups *models.Groups) error {
	return EncodeJSON(w, groups)
}

// EncodeYAML writes v as YAML with two-space indentation.
func EncodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// indent prefixes every line after the first.
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
