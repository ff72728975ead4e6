package repo_test

import (
	"log"
	"os"
	"testing"

	"github.com/pkordes/fleet-journal/testutil"
)

// File-backed tests always run; the Postgres ones need the schema first.
func TestMain(m *testing.M) {
	if err := testutil.MigrateForMain(); err != nil {
		log.Fatalf("TestMain: %v", err)
	}
	os.Exit(m.Run())
}
