// Package fileutil walks directory trees for files that are not under version
// control.
//
// ScanDirectory is the fallback file lister used when a source tree is not a
// git checkout. It mirrors what `git ls-files` would report for a clean tree:
// hidden directories (.git, .cache, ...) are skipped, excluded directory names
// and doublestar globs are honoured, and results are sorted so that every scan
// of the same tree yields the same order.
//
// Non-fatal errors (for example a subdirectory without read permission) are
// collected in ScanResult.Errors and scanning continues. Only a missing or
// non-directory root, or an invalid glob, fails the scan.
//
//	result, err := fileutil.ScanDirectory("/path/to/app", fileutil.ScanOptions{
//	    Recursive:    true,
//	    Names:        []string{"tests"},
//	    ExcludeGlobs: []string{"**/gold/**"},
//	})
package fileutil
