package testsupport

import (
	"context"
	"testing"

	"seqpoll/internal/config"
	"seqpoll/internal/journal"
)

// MustOpenJournal opens the pass journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Journal {
	t.Helper()
	j, err := journal.Open(context.Background(), cfg.Paths.JournalPath)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = j.Close()
	})
	return j
}
