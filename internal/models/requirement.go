package models

import (
	"fmt"
	"strings"
)

// Requirement is a single traceability record harvested from a test specification.
type Requirement struct {
	Name     string   `json:"name" yaml:"name"`         // Name of the spec entry (not unique across groups)
	Path     string   `json:"path" yaml:"path"`         // Directory of the spec file relative to its base directory
	Filename string   `json:"filename" yaml:"filename"` // Resolved path to the spec file
	Text     string   `json:"text" yaml:"text"`         // Requirement statement
	Design   []string `json:"design" yaml:"design"`     // Design references, never nil
	Issues   []string `json:"issues" yaml:"issues"`     // Issue references, never nil
	Label    string   `json:"label" yaml:"label"`       // F<group>.<item>, empty until labeled
}

// NewRequirement builds a Requirement, splitting design and issues on whitespace.
// Design and Issues are always non-nil so callers never need to nil-check them.
func NewRequirement(name, path, filename, text, design, issues string) *Requirement {
	return &Requirement{
		Name:     name,
		Path:     path,
		Filename: filename,
		Text:     text,
		Design:   splitTokens(design),
		Issues:   splitTokens(issues),
	}
}

// String renders the requirement in the multi-line form used by the text output.
func (r *Requirement) String() string {
	return fmt.Sprintf("%s:\n    Text: %s\n    Design: %s\n    Issues: %s",
		r.Name, r.Text, quoteList(r.Design), quoteList(r.Issues))
}

func splitTokens(s string) []string {
	fields := strings.Fields(s)
	if fields == nil {
		return []string{}
	}
	return fields
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
