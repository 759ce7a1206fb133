package scanner

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarkerFile identifies a directory as an instrument run folder.
const DefaultMarkerFile = "RunInfo.xml"

// Options configures a scan.
type Options struct {
	Roots      []string
	MaxDepth   int
	MarkerFile string
	// OnError receives paths that could not be read. The scan continues.
	OnError func(path string, err error)
}

// ErrInvalidDepth is returned by Validate when MaxDepth is below one.
var ErrInvalidDepth = errors.New("max depth must be at least 1")

// Validate checks the options before a scan.
func (o Options) Validate() error {
	if o.MaxDepth < 1 {
		return ErrInvalidDepth
	}
	if len(o.Roots) == 0 {
		return errors.New("at least one search root is required")
	}
	return nil
}

// Walk yields each directory at or below the roots (within MaxDepth levels)
// that directly contains the marker file. A run directory is not descended
// into. Unreadable subtrees are reported through OnError and skipped.
func Walk(ctx context.Context, opts Options) iter.Seq[string] {
	marker := strings.TrimSpace(opts.MarkerFile)
	if marker == "" {
		marker = DefaultMarkerFile
	}
	report := opts.OnError
	if report == nil {
		report = func(string, error) {}
	}

	return func(yield func(string) bool) {
		for _, root := range opts.Roots {
			root = strings.TrimSpace(root)
			if root == "" {
				continue
			}
			if !walkRoot(ctx, filepath.Clean(root), opts.MaxDepth, marker, report, yield) {
				return
			}
		}
	}
}

func walkRoot(ctx context.Context, root string, maxDepth int, marker string, report func(string, error), yield func(string) bool) bool {
	info, err := os.Stat(root)
	if err != nil {
		report(root, err)
		return true
	}
	if !info.IsDir() {
		report(root, errors.New("search root is not a directory"))
		return true
	}

	stopped := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			stopped = true
			return fs.SkipAll
		}
		if err != nil {
			report(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		depth := relativeDepth(root, path)
		if depth > maxDepth {
			return fs.SkipDir
		}
		if hasMarker(path, marker) {
			if !yield(path) {
				stopped = true
				return fs.SkipAll
			}
			return fs.SkipDir
		}
		if depth == maxDepth {
			return fs.SkipDir
		}
		return nil
	})
	return !stopped
}

func hasMarker(dir, marker string) bool {
	info, err := os.Stat(filepath.Join(dir, marker))
	return err == nil && !info.IsDir()
}

func relativeDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
