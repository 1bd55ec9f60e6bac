package sqlite

import (
	"testing"

	"github.com/myrjola/fitplan/internal/testhelpers"
)

func TestDatabase_Close_stopsOptimizer(t *testing.T) {
	db, err := NewDatabase(t.Context(), ":memory:", testhelpers.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	if err = db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-db.optimizerDone:
	default:
		t.Error("Expected the optimizer to have stopped")
	}
}
