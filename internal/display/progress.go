package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ProgressIndicator reports per-directory scan progress
type ProgressIndicator struct {
	writer  io.Writer
	total   int
	current int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		total:  total,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Scanning directories:\n")
}

// Step displays progress for the current directory: [N/Total] dir (cyan)
func (p *ProgressIndicator) Step(dir string) {
	p.current++
	color.New(color.FgCyan).Fprintf(p.writer, "  [%d/%d] %s\n", p.current, p.total, dir)
}

// Complete displays the success message with a green checkmark
func (p *ProgressIndicator) Complete(requirements, groups int) {
	fmt.Fprintf(p.writer, "%s Collected %d requirement%s in %d group%s\n",
		color.GreenString("✓"), requirements, plural(requirements), groups, plural(groups))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
