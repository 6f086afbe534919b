package testsupport

import (
	"path/filepath"
	"testing"

	"promap/internal/journal"
)

// MustOpenJournal opens a journal in a temp directory and registers cleanup.
func MustOpenJournal(t testing.TB) *journal.Journal {
	t.Helper()

	j, err := journal.Open(filepath.Join(t.TempDir(), journal.FileName))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}
