package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"seqpoll/internal/runid"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// RunFixture describes an instrument run directory created by NewRun.
type RunFixture struct {
	Name  string
	Dir   string
	Lanes int
}

// NewRun creates an instrument run directory below root: RunInfo.xml, run
// level metadata, InterOp files, per-lane base calls and per-lane thumbnails.
// When name parses, RunInfo.xml names its vendor id as the flow cell.
func NewRun(t testing.TB, root, name string, lanes int) RunFixture {
	t.Helper()

	dir := filepath.Join(root, name)
	files := map[string]int64{
		"RunInfo.xml":                 64,
		"RunParameters.xml":           64,
		"InterOp/QMetricsOut.bin":     128,
		"Data/Intensities/config.xml": 32,
	}
	for lane := 1; lane <= lanes; lane++ {
		l := fmt.Sprintf("L%03d", lane)
		files[filepath.Join("Data/Intensities/BaseCalls", l, "C1.1", "s_1_1101.bcl.gz")] = 256
		files[filepath.Join("Data/Intensities/BaseCalls", l, "s_1_1101.filter")] = 16
		files[filepath.Join("Data/Intensities", l, "s_1_1101.clocs")] = 16
		files[filepath.Join("Thumbnail_Images", l, "C1.1", "s_1_1101_a.jpg")] = 32
	}
	for rel, size := range files {
		WriteFile(t, filepath.Join(dir, rel), size)
	}
	if id, err := runid.Parse(name); err == nil {
		runInfo := fmt.Sprintf("<?xml version=\"1.0\"?>\n<RunInfo Version=\"5\">\n  <Run Id=%q Number=%q>\n    <Flowcell>%s</Flowcell>\n    <Instrument>%s</Instrument>\n  </Run>\n</RunInfo>\n",
			name, id.RunNumber, id.VendorID, id.Instrument)
		if err := os.WriteFile(filepath.Join(dir, runid.RunInfoFile), []byte(runInfo), 0o644); err != nil {
			t.Fatalf("write run info: %v", err)
		}
	}
	return RunFixture{Name: name, Dir: dir, Lanes: lanes}
}
