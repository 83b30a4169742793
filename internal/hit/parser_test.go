package hit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `
# top-level defaults
[Tests]
  design = 'Diffusion.md Kernel.md'
  issues = '#1234'

  [diffusion]
    type = Exodiff
    input = diffusion.i   # trailing comment
    exodiff = 'diffusion_out.e'
    requirement = "The system shall solve the
                   diffusion equation."
  []

  [./legacy]
    type = RunApp
    issues = "#99 #100"
    requirement = 'Legacy syntax shall be supported.'
  [../]

  [group/nested]
    type = CSVDiff
  []
[]
`

func TestParse_Structure(t *testing.T) {
	root, err := Parse("tests", strings.NewReader(testSpec))
	require.NoError(t, err)

	top, err := root.TopLevel()
	require.NoError(t, err)
	assert.Equal(t, "Tests", top.Name())
	assert.Equal(t, "Tests", top.FullPath())

	design, ok := top.Get("design")
	require.True(t, ok)
	assert.Equal(t, "Diffusion.md Kernel.md", design)
	assert.Equal(t, "#1234", top.GetDefault("issues", "none"))

	var names []string
	for _, c := range top.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"diffusion", "legacy", "group"}, names)

	diffusion := top.Child("diffusion")
	require.NotNil(t, diffusion)
	assert.Equal(t, "diffusion.i", diffusion.GetDefault("input", ""))
	assert.True(t, diffusion.Has("requirement"))
	assert.False(t, diffusion.Has("design"))

	text, _ := diffusion.Get("requirement")
	assert.Contains(t, text, "The system shall solve the")
	assert.Contains(t, text, "diffusion equation.")

	var keys []string
	for _, f := range diffusion.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"type", "input", "exodiff", "requirement"}, keys)

	legacy := top.Child("legacy")
	require.NotNil(t, legacy)
	assert.Equal(t, "#99 #100", legacy.GetDefault("issues", ""))

	nested := root.Find("Tests/group/nested")
	require.NotNil(t, nested)
	assert.Equal(t, "CSVDiff", nested.GetDefault("type", ""))
	assert.Equal(t, "Tests/group/nested", nested.FullPath())
	assert.Equal(t, top, nested.Parent().Parent())
}

func TestParse_EmptyValueIsPresent(t *testing.T) {
	root, err := Parse("tests", strings.NewReader("[Tests]\n  design = ''\n[]\n"))
	require.NoError(t, err)

	top, err := root.TopLevel()
	require.NoError(t, err)

	v, ok := top.Get("design")
	assert.True(t, ok, "empty string must be distinct from absence")
	assert.Equal(t, "", v)

	_, ok = top.Get("issues")
	assert.False(t, ok)
}

func TestParse_EscapedQuote(t *testing.T) {
	root, err := Parse("tests", strings.NewReader(`[T] text = 'it\'s here' []`))
	require.NoError(t, err)

	top, _ := root.TopLevel()
	assert.Equal(t, "it's here", top.GetDefault("text", ""))
}

func TestParse_NoTopLevelBlock(t *testing.T) {
	root, err := Parse("tests", strings.NewReader("# only a comment\n"))
	require.NoError(t, err)

	_, err = root.TopLevel()
	assert.True(t, errors.Is(err, ErrNoTopLevelBlock))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
		line    int
	}{
		{
			name:    "unclosed section",
			input:   "[Tests]\n  [a]\n  []\n",
			wantMsg: "section [Tests] is never closed",
			line:    1,
		},
		{
			name:    "close without open",
			input:   "[Tests]\n[]\n[]\n",
			wantMsg: "section close without matching open",
			line:    3,
		},
		{
			name:    "unterminated string",
			input:   "[Tests]\n  requirement = 'never ends\n[]\n",
			wantMsg: "unterminated string",
			line:    2,
		},
		{
			name:    "missing equals",
			input:   "[Tests]\n  requirement 'x'\n[]\n",
			wantMsg: "expected '=' after parameter \"requirement\"",
			line:    2,
		},
		{
			name:    "missing value",
			input:   "[Tests]\n  type =\n[]\n",
			wantMsg: "missing value for parameter \"type\"",
			line:    2,
		},
		{
			name:    "duplicate parameter",
			input:   "[Tests]\n  type = A\n  type = B\n[]\n",
			wantMsg: "duplicate parameter \"type\" in [Tests]",
			line:    3,
		},
		{
			name:    "unterminated header",
			input:   "[Tests\n[]\n",
			wantMsg: "unterminated section header",
			line:    1,
		},
		{
			name:    "invalid section name",
			input:   "[bad name]\n[]\n",
			wantMsg: "invalid section name",
			line:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("spec", strings.NewReader(tt.input))
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Contains(t, perr.Msg, tt.wantMsg)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, "spec", perr.File)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tests")
	require.NoError(t, os.WriteFile(path, []byte(testSpec), 0o644))

	root, err := ParseFile(path)
	require.NoError(t, err)
	assert.NotNil(t, root.Find("Tests/diffusion"))

	_, err = ParseFile(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
