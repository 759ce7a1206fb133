package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seqpoll/internal/runid"
)

// Layout entries inside a run workspace.
const (
	LogDir          = "log"
	SampleSheetFile = "sample_sheet.yaml"
	DemuxDir        = "DEMUX_RESULTS"
	QCDir           = "MULTIQC"
	RawArchivesDir  = "RAW_ARCHIVES"

	MarkerRTADone         = "STATUS_RTA_DONE"
	MarkerDemuxDone       = "STATUS_DEMUX_DONE"
	MarkerRawArchivesDone = "STATUS_RAW_ARCHIVES_DONE"
)

// Workspace is the per-run directory owned by the poller:
// <root>/<year>/<run-name>.
type Workspace struct {
	Dir string
	Run runid.Identity
}

// New resolves the workspace for a run identity below root.
func New(root string, id runid.Identity) Workspace {
	return Workspace{Dir: id.WorkspaceDir(root), Run: id}
}

// Ensure creates the workspace and its log directory.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.Dir, w.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace directory %q: %w", dir, err)
		}
	}
	return nil
}

func (w Workspace) LogDir() string          { return filepath.Join(w.Dir, LogDir) }
func (w Workspace) SampleSheetPath() string { return filepath.Join(w.Dir, SampleSheetFile) }
func (w Workspace) DemuxDir() string        { return filepath.Join(w.Dir, DemuxDir) }
func (w Workspace) QCDir() string           { return filepath.Join(w.Dir, QCDir) }
func (w Workspace) RawArchivesDir() string  { return filepath.Join(w.Dir, RawArchivesDir) }

// LogPath returns the per-run log file for the given day.
func (w Workspace) LogPath(now time.Time) string {
	return filepath.Join(w.LogDir(), fmt.Sprintf("seqpoll-%s.log", now.UTC().Format("2006-01-02")))
}

// ArchivePath returns RAW_ARCHIVES/<run-name>_LANE_<n>.tar.gz.
func (w Workspace) ArchivePath(lane int) string {
	return filepath.Join(w.RawArchivesDir(), fmt.Sprintf("%s_LANE_%d.tar.gz", w.Run.Name, lane))
}

// WriteMarker records a local breadcrumb such as STATUS_DEMUX_DONE. Markers
// are written for operators only and are never read back by the poller.
func (w Workspace) WriteMarker(name, outcome string, at time.Time) error {
	if strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("invalid marker name %q", name)
	}
	line := fmt.Sprintf("%s %s\n", strings.TrimSpace(outcome), at.UTC().Format(time.RFC3339))
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w", path, err)
	}
	return nil
}
