// Package check validates the traceability of collected requirements.
package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/reqtrace/internal/models"
)

// Kind classifies a finding.
type Kind string

const (
	KindMissingDesign    Kind = "missing-design"
	KindMissingIssues    Kind = "missing-issues"
	KindMalformedIssue   Kind = "malformed-issue"
	KindDuplicateName    Kind = "duplicate-name"
	KindUnresolvedDesign Kind = "unresolved-design"
	KindEmptyRequirement Kind = "empty-requirement"
)

// Finding is one traceability problem.
type Finding struct {
	Kind     Kind   `json:"kind" yaml:"kind"`
	Label    string `json:"label" yaml:"label"`
	Group    string `json:"group" yaml:"group"`
	Name     string `json:"name" yaml:"name"`
	Filename string `json:"filename" yaml:"filename"`
	Message  string `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s (%s): %s", f.Label, f.Name, f.Filename, f.Message)
}

// DesignResolver reports whether a design token names an existing document.
type DesignResolver interface {
	Enabled() bool
	Unresolved(tokens []string) []string
}

// Run checks every requirement in groups. A nil or disabled resolver skips
// design resolution. Findings are ordered by group, then item, then kind.
func Run(groups *models.Groups, resolver DesignResolver) []Finding {
	var findings []Finding
	resolve := resolver != nil && resolver.Enabled()

	for _, group := range groups.Groups() {
		seen := make(map[string]string)
		for _, req := range group.Requirements {
			add := func(kind Kind, format string, args ...interface{}) {
				findings = append(findings, Finding{
					Kind:     kind,
					Label:    req.Label,
					Group:    group.Name,
					Name:     req.Name,
					Filename: req.Filename,
					Message:  fmt.Sprintf(format, args...),
				})
			}

			if strings.TrimSpace(req.Text) == "" {
				add(KindEmptyRequirement, "requirement text is empty")
			}
			if len(req.Design) == 0 {
				add(KindMissingDesign, "no design documents listed")
			}
			if len(req.Issues) == 0 {
				add(KindMissingIssues, "no issues listed")
			}
			for _, issue := range req.Issues {
				if !ValidIssue(issue) {
					add(KindMalformedIssue, "issue %q must look like #1234 or owner/repo#1234", issue)
				}
			}
			if first, ok := seen[req.Name]; ok {
				add(KindDuplicateName, "name also used by %s in group %q", first, group.Name)
			} else {
				seen[req.Name] = req.Label
			}
			if resolve && len(req.Design) > 0 {
				if missing := resolver.Unresolved(req.Design); len(missing) > 0 {
					add(KindUnresolvedDesign, "design document(s) not found: %s", strings.Join(missing, ", "))
				}
			}
		}
	}
	return findings
}

// ValidIssue accepts "#123", "repo#123" and "owner/repo#123". Commit
// references of seven or more hex digits are accepted too.
func ValidIssue(token string) bool {
	i := strings.LastIndex(token, "#")
	if i < 0 {
		return isHex(token) && len(token) >= 7
	}
	num := token[i+1:]
	if num == "" {
		return false
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// CountByKind tallies findings per kind, sorted by kind name.
func CountByKind(findings []Finding) []KindCount {
	counts := make(map[Kind]int)
	for _, f := range findings {
		counts[f.Kind]++
	}
	out := make([]KindCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount is one entry of CountByKind.
type KindCount struct {
	Kind  Kind
	Count int
}
