package testutil

import (
	"testing"

	"github.com/hannysoft/mesa-client/internal/store"
)

// NewTestStore opens an in-memory store with the full schema applied. The
// store is closed automatically when the test finishes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing in-memory store: %v", err)
		}
	})
	return s
}
