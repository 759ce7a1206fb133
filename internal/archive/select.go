package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoFiles is returned when a lane selection is empty.
var ErrNoFiles = errors.New("no files selected for lane")

// DefaultExcludes drops thumbnail and image-only content.
var DefaultExcludes = []string{"**/Thumbnail_Images/**", "**/Images/**"}

// laneSegment matches a path segment that names a lane, e.g. L001.
var laneSegment = regexp.MustCompile(`^L(\d{3})$`)

// LaneOf returns the lane named by the first lane segment in a slash
// separated relative path.
func LaneOf(rel string) (int, bool) {
	for _, segment := range strings.Split(rel, "/") {
		if m := laneSegment.FindStringSubmatch(segment); m != nil {
			lane, _ := strconv.Atoi(m[1])
			return lane, true
		}
	}
	return 0, false
}

// belongsToOtherLane reports whether any segment names a lane other than lane.
func belongsToOtherLane(rel string, lane int) bool {
	for _, segment := range strings.Split(rel, "/") {
		if m := laneSegment.FindStringSubmatch(segment); m != nil {
			if n, _ := strconv.Atoi(m[1]); n != lane {
				return true
			}
		}
	}
	return false
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// SelectLaneFiles returns the slash separated paths, relative to runDir, of
// every file that belongs in the archive for lane: all files under runDir
// minus those matching excludes minus those under another lane's segment.
// Directories are implied by their files. The result is sorted.
func SelectLaneFiles(runDir string, lane int, excludes []string) ([]string, error) {
	if lane < 1 {
		return nil, fmt.Errorf("lane must be at least 1, got %d", lane)
	}
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	var files []string
	err := filepath.WalkDir(runDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(runDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if belongsToOtherLane(rel, lane) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if belongsToOtherLane(rel, lane) || excluded(rel, excludes) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk run directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
