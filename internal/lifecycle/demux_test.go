package lifecycle

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSheetSummaryLogsUnreadableSheet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	summary := sheetSummary(logger, filepath.Join(t.TempDir(), "missing.yaml"))
	if summary.Format != "" {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if !strings.Contains(buf.String(), "sample sheet summary unavailable") {
		t.Fatalf("expected debug log for unreadable sheet, got %q", buf.String())
	}

	buf.Reset()
	path := filepath.Join(t.TempDir(), "sample_sheet.yaml")
	if err := os.WriteFile(path, []byte("libraries:\n  - name: lib1\n    lane: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	summary = sheetSummary(logger, path)
	if summary.Libraries != 1 || !strings.Contains(buf.String(), "sample sheet retrieved") {
		t.Fatalf("unexpected summary %+v, log %q", summary, buf.String())
	}
	if !strings.Contains(reportBody("RUN", summary, nil), "1 libraries on lanes 2") {
		t.Fatalf("report body missing sheet summary")
	}
	if strings.Contains(reportBody("RUN", sheetSummary(logger, "/nonexistent"), nil), "Sample sheet") {
		t.Fatalf("report body should omit unavailable summary")
	}
}
