package models

import (
	"testing"
)

func TestNewRequirement_SplitsTokens(t *testing.T) {
	tests := []struct {
		name       string
		design     string
		issues     string
		wantDesign []string
		wantIssues []string
	}{
		{
			name:       "single tokens",
			design:     "a.cc",
			issues:     "#1",
			wantDesign: []string{"a.cc"},
			wantIssues: []string{"#1"},
		},
		{
			name:       "multiple tokens with mixed whitespace",
			design:     "  Kernel.md\tDiffusion.md\n",
			issues:     "#12 #4200",
			wantDesign: []string{"Kernel.md", "Diffusion.md"},
			wantIssues: []string{"#12", "#4200"},
		},
		{
			name:       "empty values yield empty slices",
			design:     "",
			issues:     "   ",
			wantDesign: []string{},
			wantIssues: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequirement("t1", "kernels", "/x/kernels/tests", "text", tt.design, tt.issues)

			if r.Design == nil || r.Issues == nil {
				t.Fatalf("Design/Issues must never be nil: %#v", r)
			}
			if !equal(r.Design, tt.wantDesign) {
				t.Errorf("Design = %v, want %v", r.Design, tt.wantDesign)
			}
			if !equal(r.Issues, tt.wantIssues) {
				t.Errorf("Issues = %v, want %v", r.Issues, tt.wantIssues)
			}
			if r.Label != "" {
				t.Errorf("Label = %q, want empty before labeling", r.Label)
			}
		})
	}
}

func TestRequirement_String(t *testing.T) {
	r := NewRequirement("t1", "", "tests", "text1", "a.cc b.cc", "#1")

	want := "t1:\n    Text: text1\n    Design: [\"a.cc\", \"b.cc\"]\n    Issues: [\"#1\"]"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
