// Package display renders user-facing terminal output for reqtrace commands.
//
// # Progress
//
// ProgressIndicator reports each scanned directory:
//
//	progress := display.NewProgressIndicator(os.Stderr, len(dirs))
//	progress.Start()
//	// progress.Step(dir) for every directory
//	progress.Complete(groups.Count(), groups.Len())
//
// # Warnings
//
//	warning := display.Warning{
//	    Title:      "3 collection diagnostics",
//	    Files:      []string{"test/tests/kernels/tests"},
//	    Suggestion: "Add 'issues' at the top level of each spec file",
//	}
//	warning.Display(os.Stderr)
//
// # Reports
//
// WriteText prints labeled requirement groups in the human readable format
// used by `reqtrace collect`. Structured output goes through WriteYAML and
// WriteJSON.
//
// Colors come from fatih/color and are disabled automatically when the
// output is not a terminal.
package display
