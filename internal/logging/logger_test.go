package logging_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seqpoll/internal/config"
	"seqpoll/internal/logging"
	"seqpoll/internal/services"
)

func TestNewFromConfigWritesMainLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("poll started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.MainLogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "poll started") {
		t.Fatalf("expected message in main log, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponentAndRun(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunName(context.Background(), "200101_INSTR1_0001_AVENDOR1")
	ctx = services.WithStage(ctx, "archive")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "lifecycle")).Info("lane archived", logging.Int(logging.FieldLane, 2))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO lifecycle [200101_INSTR1_0001_AVENDOR1]: lane archived") {
		t.Fatalf("unexpected prefix in %q", line)
	}
	if !strings.Contains(line, "stage=archive") || !strings.Contains(line, "lane=2") {
		t.Fatalf("expected structured fields in %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("status unavailable", logging.String(logging.FieldCategory, "sequencing"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "status unavailable" || record["category"] != "sequencing" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRunLogCapturesRecordsAndToolOutput(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{mainPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runLog, err := logging.OpenRunLog(filepath.Join(dir, "run", "log", "seqpoll-2026-01-01.log"), "console", "debug")
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	logger := runLog.Attach(base)
	logger.Debug("debug detail")
	logger.Info("demultiplex started")
	fmt.Fprintln(runLog.Writer(), "bcl2fastq: processing lane 1")
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	runContent, err := os.ReadFile(runLog.Path())
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	for _, want := range []string{"debug detail", "demultiplex started", "bcl2fastq: processing lane 1"} {
		if !strings.Contains(string(runContent), want) {
			t.Fatalf("expected %q in run log %q", want, runContent)
		}
	}
	mainContent, err := os.ReadFile(mainPath)
	if err != nil {
		t.Fatalf("read main log: %v", err)
	}
	if !strings.Contains(string(mainContent), "demultiplex started") {
		t.Fatalf("expected info record in main log, got %q", mainContent)
	}
	if strings.Contains(string(mainContent), "debug detail") || strings.Contains(string(mainContent), "bcl2fastq") {
		t.Fatalf("main log should only carry info records, got %q", mainContent)
	}
}

func TestTeeLoggerWithNoHandlersDiscards(t *testing.T) {
	logger := logging.TeeLogger(nil)
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected no-op logger")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "seqpoll-old.log")
	fresh := filepath.Join(dir, "seqpoll.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{Dir: dir, Pattern: "seqpoll*.log", Exclude: []string{fresh}})
	if removed != 1 {
		t.Fatalf("expected one pruned file, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected non-matching file kept: %v", err)
	}
}
