// Package leaderboard maintains the in-memory, rank-ordered projection of
// successful submissions and its on-disk backing records. The projection
// is always rebuildable — from the small per-submission JSON records under
// leaderboard/<task>/, or, failing that, from a full scan of the
// submission store — so losing the in-memory copy is never destructive.
package leaderboard

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/classbench/perfclass/internal/store"
)

// Entry is a single leaderboard row.
type Entry struct {
	Task           string
	UserID         string
	SubmissionID   string
	BestTime       float64
	CyclesPerCall  float64
	Author         store.Author
}

// record is the JSON-serializable projection file. CyclesPerCall is a
// pointer so the loader can distinguish "absent from an older record"
// (nil, defaults to +Inf) from "present and zero" — encoding/json would
// otherwise silently collapse both to 0.
type record struct {
	Task          string      `json:"task"`
	UserID        string      `json:"user_id"`
	SubmissionID  string      `json:"submission_id"`
	BestTime      float64     `json:"best_time"`
	CyclesPerCall *float64    `json:"cycles_per_call,omitempty"`
	Author        store.Author `json:"author,omitempty"`
}

// Row is one display-ready leaderboard row, annotated for UI highlighting.
type Row struct {
	Entry
	Rank        int // 1-based position in sorted order
	FirstOfUser bool
	UserRank    int // 0-based rank among distinct users; meaningful only when FirstOfUser
}

// Board is the mutable, process-wide leaderboard projection. All mutation
// and iteration happens under mu.
type Board struct {
	mu      sync.RWMutex
	entries []Entry
	dir     string // leaderboard/<task> projection directory; empty = no persistence
}

// New creates an empty Board. projectionDir may be empty to disable
// persistence entirely (callers should instead call RebuildFromStore on
// every start in that mode).
func New(projectionDir string) *Board {
	return &Board{dir: projectionDir}
}

// Insert appends entry and re-sorts by BestTime ascending. It also
// best-effort persists the entry as a projection record; a persistence
// failure is logged, never fatal — the store remains the system of record.
func (b *Board) Insert(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	sortEntries(b.entries)
	if b.dir != "" {
		if err := writeRecord(b.dir, e); err != nil {
			slog.Warn("failed to persist leaderboard record", "submission", e.SubmissionID, "error", err)
		}
	}
}

// ListForDisplay returns rows in rank order, annotated with a first-of-user
// flag and an incrementing user-rank counter. What the HTTP surface does
// with the rows (link visibility by viewer identity) is up to the caller;
// Board itself has no notion of ownership-based filtering.
func (b *Board) ListForDisplay() []Row {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows := make([]Row, 0, len(b.entries))
	seen := make(map[string]bool, len(b.entries))
	userRank := 0
	for i, e := range b.entries {
		first := !seen[e.UserID]
		seen[e.UserID] = true
		rank := 0
		if first {
			rank = userRank
			userRank++
		}
		rows = append(rows, Row{Entry: e, Rank: i + 1, FirstOfUser: first, UserRank: rank})
	}
	return rows
}

// Len returns the number of entries currently held.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BestTime < entries[j].BestTime
	})
}

// RebuildFromProjection scans dir for <id>.json records and rebuilds the
// in-memory entries from them, sorted by BestTime ascending. A corrupt
// individual record is skipped with a warning rather than aborting the
// whole rebuild.
func RebuildFromProjection(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			slog.Warn("cannot read projection record", "file", f.Name(), "error", err)
			continue
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			slog.Warn("corrupt projection record, skipping", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, recordToEntry(r))
	}
	sortEntries(entries)
	return entries, nil
}

// RebuildFromStore scans the submission store for the given task and keeps
// only submissions whose status is a pass (exit code 0), sorted by
// BestTime ascending. This is the fallback used when projection records
// are absent or the operator forces a rebuild (-R/--regenerate-leaderboard).
func RebuildFromStore(s *store.Store, root, taskName string) ([]Entry, error) {
	taskDir := filepath.Join(root, "submissions", taskName)
	ids, err := os.ReadDir(taskDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, id := range ids {
		if !id.IsDir() {
			continue
		}
		sub, err := s.Load(taskName, id.Name())
		if err != nil {
			slog.Warn("cannot load submission during leaderboard rebuild", "id", id.Name(), "error", err)
			continue
		}
		if sub.Result.Status != store.StatusPass {
			continue
		}
		entries = append(entries, Entry{
			Task:          taskName,
			UserID:        sub.UserID,
			SubmissionID:  sub.ID,
			BestTime:      sub.Result.BestTime,
			CyclesPerCall: sub.Result.CyclesPerCall,
			Author:        sub.Author,
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Load replaces the board's entries with the given slice (already sorted
// by the caller, typically via RebuildFromProjection/RebuildFromStore).
func (b *Board) Load(entries []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = entries
	sortEntries(b.entries)
}

func recordToEntry(r record) Entry {
	cycles := math.Inf(1)
	if r.CyclesPerCall != nil {
		cycles = *r.CyclesPerCall
	}
	return Entry{
		Task:          r.Task,
		UserID:        r.UserID,
		SubmissionID:  r.SubmissionID,
		BestTime:      r.BestTime,
		CyclesPerCall: cycles,
		Author:        r.Author,
	}
}

// writeRecord atomically writes a single projection record to
// <dir>/<submission_id>.json.
func writeRecord(dir string, e Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	// +Inf (cycles-per-call absent) is not representable in JSON; omit the
	// field so recordToEntry restores the +Inf default on reload.
	var cycles *float64
	if !math.IsInf(e.CyclesPerCall, 1) {
		c := e.CyclesPerCall
		cycles = &c
	}
	r := record{
		Task:          e.Task,
		UserID:        e.UserID,
		SubmissionID:  e.SubmissionID,
		BestTime:      e.BestTime,
		CyclesPerCall: cycles,
		Author:        e.Author,
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, e.SubmissionID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
