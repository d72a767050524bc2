package db

import (
	"fmt"
	"os"
	"testing"
)

// TestLiveDatabase opens the real prompt history and prints the newest
// entries. Skipped if the database doesn't exist.
func TestLiveDatabase(t *testing.T) {
	dbPath := DefaultDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("database not found at", dbPath)
	}

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	prompts, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	fmt.Printf("Recent prompts: %d\n", len(prompts))
	for i, p := range prompts {
		fmt.Printf("  %d. [%s] %s\n", i+1, p.CreatedAt.Format("2006-01-02 15:04:05"), p.Text)
	}
}
