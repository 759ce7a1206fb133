package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func threeLaneRun(t *testing.T) string {
	t.Helper()
	runDir := filepath.Join(t.TempDir(), "200101_INSTR1_0001_AVENDOR1")
	writeFiles(t, runDir,
		"RunInfo.xml",
		"RunParameters.xml",
		"InterOp/QMetricsOut.bin",
		"Data/Intensities/BaseCalls/L001/C1.1/s_1_1101.bcl.gz",
		"Data/Intensities/BaseCalls/L002/C1.1/s_2_1101.bcl.gz",
		"Data/Intensities/BaseCalls/L003/C1.1/s_3_1101.bcl.gz",
		"Data/Intensities/L001/s_1_1101.clocs",
		"Data/Intensities/L002/s_2_1101.clocs",
		"Data/Intensities/L003/s_3_1101.clocs",
		"Thumbnail_Images/L002/C1.1/s_2_1101_a.jpg",
		"Images/L002/focus.tif",
		"Config/Effective.cfg",
	)
	return runDir
}

func TestSelectLaneFilesExcludesOtherLanesAndImages(t *testing.T) {
	runDir := threeLaneRun(t)

	got, err := SelectLaneFiles(runDir, 2, DefaultExcludes)
	if err != nil {
		t.Fatalf("SelectLaneFiles: %v", err)
	}
	want := []string{
		"Config/Effective.cfg",
		"Data/Intensities/BaseCalls/L002/C1.1/s_2_1101.bcl.gz",
		"Data/Intensities/L002/s_2_1101.clocs",
		"InterOp/QMetricsOut.bin",
		"RunInfo.xml",
		"RunParameters.xml",
	}
	sort.Strings(want)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected lane 2 file set:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, rel := range got {
		if lane, ok := LaneOf(rel); ok && lane != 2 {
			t.Fatalf("lane %d file leaked into lane 2 archive: %s", lane, rel)
		}
		if strings.Contains(rel, "Images/") {
			t.Fatalf("image file leaked into archive: %s", rel)
		}
	}
}

func TestSelectLaneFilesPartitionsLanes(t *testing.T) {
	runDir := threeLaneRun(t)
	seen := map[string]int{}
	for lane := 1; lane <= 3; lane++ {
		files, err := SelectLaneFiles(runDir, lane, DefaultExcludes)
		if err != nil {
			t.Fatalf("lane %d: %v", lane, err)
		}
		for _, rel := range files {
			if _, ok := LaneOf(rel); ok {
				seen[rel]++
			}
		}
	}
	for rel, count := range seen {
		if count != 1 {
			t.Fatalf("lane file %s appeared in %d archives", rel, count)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 lane-specific files across archives, got %d", len(seen))
	}
}

func TestSelectLaneFilesValidation(t *testing.T) {
	if _, err := SelectLaneFiles(t.TempDir(), 0, nil); err == nil {
		t.Fatal("expected error for lane 0")
	}
	if _, err := SelectLaneFiles(t.TempDir(), 1, []string{"[bad"}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestLaneOf(t *testing.T) {
	cases := map[string]int{
		"Data/Intensities/BaseCalls/L004/x.bcl": 4,
		"L001/file":                             1,
	}
	for rel, want := range cases {
		if got, ok := LaneOf(rel); !ok || got != want {
			t.Fatalf("LaneOf(%q) = %d, %v", rel, got, ok)
		}
	}
	for _, rel := range []string{"RunInfo.xml", "Data/L1/x", "Data/XL001/x", "Data/L0001/x"} {
		if _, ok := LaneOf(rel); ok {
			t.Fatalf("expected no lane for %q", rel)
		}
	}
}

func TestBuildLaneWritesNormalizedTarAndChecksum(t *testing.T) {
	runDir := threeLaneRun(t)
	dest := filepath.Join(t.TempDir(), "RAW_ARCHIVES", "200101_INSTR1_0001_AVENDOR1_LANE_2.tar.gz")
	builder := NewBuilder(NewCompressor(nil), DefaultExcludes, nil)

	result, err := builder.BuildLane(context.Background(), runDir, 2, dest)
	if err != nil {
		t.Fatalf("BuildLane: %v", err)
	}
	if result.Files != 6 || result.Path != dest || result.MD5Path != dest+".md5" {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := VerifyChecksum(dest); err != nil {
		t.Fatalf("VerifyChecksum: %v", err)
	}
	md5Line, _ := os.ReadFile(dest + ".md5")
	if !strings.HasSuffix(strings.TrimSpace(string(md5Line)), "  "+filepath.Base(dest)) {
		t.Fatalf("unexpected md5 file %q", md5Line)
	}
	if _, err := os.Stat(dest + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, stat err=%v", err)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	tr := tar.NewReader(zr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar next: %v", err)
		}
		if hdr.Uid != 0 || hdr.Gid != 0 || hdr.Uname != "" || hdr.Gname != "" {
			t.Fatalf("ownership not normalized for %s: %d/%d %q/%q", hdr.Name, hdr.Uid, hdr.Gid, hdr.Uname, hdr.Gname)
		}
		if !strings.HasPrefix(hdr.Name, "200101_INSTR1_0001_AVENDOR1/") {
			t.Fatalf("entry not prefixed with run name: %s", hdr.Name)
		}
		body, _ := io.ReadAll(tr)
		rel := strings.TrimPrefix(hdr.Name, "200101_INSTR1_0001_AVENDOR1/")
		if string(body) != rel {
			t.Fatalf("unexpected content for %s: %q", rel, body)
		}
		names = append(names, rel)
	}
	if len(names) != 6 {
		t.Fatalf("expected 6 entries, got %v", names)
	}
}

type failingCompressor struct{}

func (failingCompressor) Name() string { return "broken" }

func (failingCompressor) Compress(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 16)
	_, _ = src.Read(buf)
	return errors.New("exit status 1")
}

func TestBuildLaneCompressorFailureLeavesNoArchive(t *testing.T) {
	runDir := threeLaneRun(t)
	dest := filepath.Join(t.TempDir(), "lane1.tar.gz")
	builder := NewBuilder(failingCompressor{}, DefaultExcludes, nil)

	if _, err := builder.BuildLane(context.Background(), runDir, 1, dest); err == nil {
		t.Fatal("expected compressor failure")
	}
	for _, path := range []string{dest, dest + ".partial", dest + ".md5"} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be absent, stat err=%v", path, err)
		}
	}
}

func TestBuildLaneEmptySelection(t *testing.T) {
	runDir := t.TempDir()
	writeFiles(t, runDir, "Thumbnail_Images/L001/a.jpg")
	builder := NewBuilder(nil, DefaultExcludes, nil)
	_, err := builder.BuildLane(context.Background(), runDir, 1, filepath.Join(t.TempDir(), "x.tar.gz"))
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
}
