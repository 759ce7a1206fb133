package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"seqpoll/internal/journal"
)

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first, err := j.Record(ctx, journal.Entry{
		Run:         "200101_INSTR1_0001_AVENDOR1",
		RunPath:     "/data/runs/200101_INSTR1_0001_AVENDOR1",
		Mode:        "ALL",
		Disposition: "complete",
		Writes:      []string{"conversion=in_progress", "conversion=complete"},
		StartedAt:   base,
		Duration:    1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := j.Record(ctx, journal.Entry{
		Run:         "200102_INSTR1_0002_AVENDOR2",
		RunPath:     "/data/runs/200102_INSTR1_0002_AVENDOR2",
		Mode:        "ALL",
		Disposition: "waiting",
		StartedAt:   base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Record second: %v", err)
	}

	entries, err := j.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Run != "200102_INSTR1_0002_AVENDOR2" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	got := entries[1]
	if got.ID != first.ID || got.Duration != 1500*time.Millisecond || !got.StartedAt.Equal(base) {
		t.Fatalf("unexpected round trip %+v", got)
	}
	if len(got.Writes) != 2 || got.Writes[1] != "conversion=complete" {
		t.Fatalf("unexpected writes %v", got.Writes)
	}
	if entries[0].Writes != nil {
		t.Fatalf("expected no writes, got %v", entries[0].Writes)
	}

	filtered, err := j.List(ctx, journal.Filter{Run: "200101_INSTR1_0001_AVENDOR1"})
	if err != nil || len(filtered) != 1 {
		t.Fatalf("filter by run: %v %+v", err, filtered)
	}
	limited, err := j.List(ctx, journal.Filter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit: %v %+v", err, limited)
	}
}

func TestRecordRequiresRun(t *testing.T) {
	j := openJournal(t)
	if _, err := j.Record(context.Background(), journal.Entry{Mode: "ALL"}); err == nil {
		t.Fatal("expected error for entry without run")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, age := range []time.Duration{48 * time.Hour, time.Hour} {
		if _, err := j.Record(ctx, journal.Entry{Run: "run", RunPath: "/r", Mode: "ALL", StartedAt: now.Add(-age)}); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	removed, err := j.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	since, err := j.List(ctx, journal.Filter{Since: now.Add(-2 * time.Hour)})
	if err != nil || len(since) != 1 {
		t.Fatalf("Since filter: %v %+v", err, since)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	j, err := journal.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Record(ctx, journal.Entry{Run: "run", RunPath: "/r", Mode: "REGISTER"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = j.Close()

	j, err = journal.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	entries, err := j.List(ctx, journal.Filter{})
	if err != nil || len(entries) != 1 || entries[0].Mode != "REGISTER" {
		t.Fatalf("unexpected entries after reopen: %v %+v", err, entries)
	}
}
