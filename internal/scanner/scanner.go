/*------------------------------------------------------------------
 *
 * Purpose:	Parallel directory scanner (C11): recursive audio-file
 *		collector shared by the Browser and, outside this module,
 *		by the external sidecar tooling.
 *
 * Description:	Work-stealing across subdirectories: the root's
 *		immediate subdirectories are dispatched to a worker pool,
 *		each worker walking its subtree independently and returning
 *		a slice of paths. Results are merged into a single list in
 *		unspecified order (spec §5 — the Browser sorts before
 *		display). A per-branch error does not abort the other
 *		branches; scan errors are collected and returned alongside
 *		the merged path list.
 *
 *------------------------------------------------------------------*/
package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/zim-audio/zim/internal/decoder"
)

// SkipDirs names directories that are never descended into, regardless
// of depth (spec §4.7).
var SkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"temp":         true,
	"target":       true,
	".zim":         true,
}

// Error pairs a scan failure with the directory branch that produced
// it.
type Error struct {
	Dir   string
	Cause error
}

func (e *Error) Error() string { return e.Dir + ": " + e.Cause.Error() }

// Scan walks root recursively and returns every supported audio file
// path found, skipping hidden entries and SkipDirs. Immediate
// subdirectories of root are scanned concurrently; errors in one
// branch are collected, not propagated, and do not stop the others.
func Scan(root string) ([]string, []error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, []error{&Error{Dir: root, Cause: err}}
	}

	var branches []string
	var rootFiles []string
	for _, e := range entries {
		name := e.Name()
		if isHidden(name) {
			continue
		}
		full := filepath.Join(root, name)
		if e.IsDir() {
			if SkipDirs[name] {
				continue
			}
			branches = append(branches, full)
			continue
		}
		if decoder.IsSupportedExtension(full) {
			rootFiles = append(rootFiles, full)
		}
	}

	results := make([][]string, len(branches))
	errs := make([][]error, len(branches))

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, branch := range branches {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, branch string) {
			defer wg.Done()
			defer func() { <-sem }()
			paths, branchErrs := walk(branch)
			results[i] = paths
			errs[i] = branchErrs
		}(i, branch)
	}
	wg.Wait()

	merged := rootFiles
	var allErrs []error
	for i := range branches {
		merged = append(merged, results[i]...)
		allErrs = append(allErrs, errs[i]...)
	}
	return merged, allErrs
}

// walk recursively collects supported audio files under dir using
// os.ReadDir, skipping hidden entries and SkipDirs. Errors
// encountered mid-walk are collected and do not abort the remainder of
// the walk.
func walk(dir string) ([]string, []error) {
	var paths []string
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{&Error{Dir: dir, Cause: err}}
	}

	for _, e := range entries {
		name := e.Name()
		if isHidden(name) {
			continue
		}
		full := filepath.Join(dir, name)
		if e.IsDir() {
			if SkipDirs[name] {
				continue
			}
			subPaths, subErrs := walk(full)
			paths = append(paths, subPaths...)
			errs = append(errs, subErrs...)
			continue
		}
		if decoder.IsSupportedExtension(full) {
			paths = append(paths, full)
		}
	}
	return paths, errs
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
