package leaderboard

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/classbench/perfclass/internal/store"
)

func TestInsertAndListForDisplay_SortedByBestTime(t *testing.T) {
	b := New(t.TempDir())
	b.Insert(Entry{Task: "atan", UserID: "u2", SubmissionID: "0002-bbbb", BestTime: 0.005, CyclesPerCall: 200})
	b.Insert(Entry{Task: "atan", UserID: "u1", SubmissionID: "0001-aaaa", BestTime: 0.002, CyclesPerCall: 100})
	b.Insert(Entry{Task: "atan", UserID: "u3", SubmissionID: "0003-cccc", BestTime: 0.009, CyclesPerCall: 300})

	rows := b.ListForDisplay()
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	want := []string{"0001-aaaa", "0002-bbbb", "0003-cccc"}
	for i, id := range want {
		if rows[i].SubmissionID != id {
			t.Errorf("rank %d = %s, want %s", i+1, rows[i].SubmissionID, id)
		}
		if rows[i].Rank != i+1 {
			t.Errorf("row %d Rank = %d", i, rows[i].Rank)
		}
	}
}

func TestListForDisplay_FirstOfUserAndUserRank(t *testing.T) {
	b := New("")
	b.Insert(Entry{Task: "atan", UserID: "u1", SubmissionID: "0001-aaaa", BestTime: 0.001})
	b.Insert(Entry{Task: "atan", UserID: "u1", SubmissionID: "0002-bbbb", BestTime: 0.002})
	b.Insert(Entry{Task: "atan", UserID: "u2", SubmissionID: "0003-cccc", BestTime: 0.003})

	rows := b.ListForDisplay()
	if !rows[0].FirstOfUser || rows[0].UserRank != 0 {
		t.Errorf("row 0: first=%v userRank=%d, want true,0", rows[0].FirstOfUser, rows[0].UserRank)
	}
	if rows[1].FirstOfUser {
		t.Error("row 1 (u1's second submission) should not be FirstOfUser")
	}
	if rows[1].UserRank != 0 {
		t.Errorf("row 1 UserRank = %d, want 0", rows[1].UserRank)
	}
	if !rows[2].FirstOfUser || rows[2].UserRank != 1 {
		t.Errorf("row 2: first=%v userRank=%d, want true,1", rows[2].FirstOfUser, rows[2].UserRank)
	}
}

func TestInsert_PersistsAndRebuildsFromProjection(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	b.Insert(Entry{Task: "atan", UserID: "u1", SubmissionID: "0001-aaaa", BestTime: 0.002, CyclesPerCall: 150, Author: store.AuthorHuman})
	b.Insert(Entry{Task: "atan", UserID: "u2", SubmissionID: "0002-bbbb", BestTime: 0.001})

	entries, err := RebuildFromProjection(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].SubmissionID != "0002-bbbb" {
		t.Errorf("first entry = %s, want 0002-bbbb (lower best_time)", entries[0].SubmissionID)
	}
	if entries[1].CyclesPerCall != 150 {
		t.Errorf("CyclesPerCall = %v, want 150", entries[1].CyclesPerCall)
	}
	if entries[1].Author != store.AuthorHuman {
		t.Errorf("Author = %v, want Human", entries[1].Author)
	}
}

func TestRebuildFromProjection_MissingDirReturnsEmpty(t *testing.T) {
	entries, err := RebuildFromProjection(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestRebuildFromProjection_SkipsCorruptRecordWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	b.Insert(Entry{Task: "atan", UserID: "u1", SubmissionID: "0001-aaaa", BestTime: 0.002})

	if err := writeBadRecord(dir, "0002-bbbb.json"); err != nil {
		t.Fatal(err)
	}

	entries, err := RebuildFromProjection(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1 (corrupt record skipped)", len(entries))
	}
}

func writeBadRecord(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("{not valid json"), 0o644)
}

func writeExitAndBestTime(t *testing.T, dir string, exitCode int, bestTimeLine string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "exit_code"), []byte(strconv.Itoa(exitCode)), 0o644); err != nil {
		t.Fatal(err)
	}
	if bestTimeLine != "" {
		if err := os.WriteFile(filepath.Join(dir, "best_time.txt"), []byte(bestTimeLine), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRebuildFromStore_KeepsOnlyPassingSubmissions(t *testing.T) {
	root := t.TempDir()
	s := store.New(root)

	pass := &store.Submission{ID: "0001-aaaa", Task: "atan", UserID: "u1", Author: store.AuthorHuman}
	fail := &store.Submission{ID: "0002-bbbb", Task: "atan", UserID: "u2", Author: store.AuthorHuman}

	if err := s.Create(pass, []byte("// bench")); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(fail, []byte("// bench")); err != nil {
		t.Fatal(err)
	}

	writeExitAndBestTime(t, s.Dir("atan", "0001-aaaa"), 0, "0.004 90.0")
	writeExitAndBestTime(t, s.Dir("atan", "0002-bbbb"), 1, "")

	entries, err := RebuildFromStore(s, root, "atan")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].SubmissionID != "0001-aaaa" {
		t.Errorf("got %s, want 0001-aaaa", entries[0].SubmissionID)
	}
	if entries[0].BestTime != 0.004 {
		t.Errorf("BestTime = %v, want 0.004", entries[0].BestTime)
	}
}

func TestRecordToEntry_MissingCyclesPerCallDefaultsToInf(t *testing.T) {
	e := recordToEntry(record{Task: "atan", SubmissionID: "0001-aaaa", BestTime: 0.1})
	if !math.IsInf(e.CyclesPerCall, 1) {
		t.Errorf("CyclesPerCall = %v, want +Inf", e.CyclesPerCall)
	}
}
