package db

import (
	"fmt"
	"os"
	"testing"
)

// TestLiveIndex opens a real trial index and prints the latest session.
// Skipped unless LEAFCAM_INDEX points at an existing database.
func TestLiveIndex(t *testing.T) {
	dbPath := os.Getenv("LEAFCAM_INDEX")
	if dbPath == "" {
		t.Skip("LEAFCAM_INDEX not set")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Skip("index not found at", dbPath)
	}

	store, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess == nil {
		fmt.Println("No sessions in index")
		return
	}

	fmt.Printf("Latest session: id=%s mode=%s started=%s log=%s\n",
		sess.ID, sess.Mode, sess.StartedAt.Format("2006-01-02 15:04:05"), sess.LogPath)

	trials, err := store.TrialsForSession(sess.ID)
	if err != nil {
		t.Fatalf("TrialsForSession: %v", err)
	}
	fmt.Printf("Trials for session: %d\n", len(trials))
	for _, tr := range trials {
		fmt.Printf("  %d. %s (%.2f%%) %s\n", tr.TrialID, tr.PredictedLabel, tr.Confidence, tr.Verdict)
	}
}
