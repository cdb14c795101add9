// Package store implements the durable, directory-per-submission layout
// that is the classroom service's system of record. Every file written by
// a submission is named and placed at a fixed path; loading a submission
// tolerates any subset of files being absent and substitutes the
// documented sentinel defaults.
package store

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author is a closed enumeration of self-declared submission provenance.
type Author string

const (
	AuthorHuman      Author = "Human"
	AuthorChatGPT    Author = "ChatGPT"
	AuthorHumanTeam  Author = "HumanTeam"
	AuthorHybridTeam Author = "HybridTeam"
	AuthorTeacher    Author = "Teacher"
)

// ValidAuthor reports whether label belongs to the closed author set.
func ValidAuthor(label string) bool {
	switch Author(label) {
	case AuthorHuman, AuthorChatGPT, AuthorHumanTeam, AuthorHybridTeam, AuthorTeacher:
		return true
	default:
		return false
	}
}

// Status mirrors the runner's exit-code contract as a closed set.
type Status int

const (
	StatusUnknown Status = iota
	StatusPass           // exit 0: ran, correctness and timing recorded
	StatusCompileFailure // exit 1 (or any code outside {0,1,2})
	StatusCorrectnessFailure
)

// Submission is the immutable record of one student's attempt. It is
// written to disk exactly once and never mutated or deleted.
type Submission struct {
	ID          string
	Task        string
	UserID      string
	Code        string
	Flags       string
	Author      Author
	IP          string
	SubmittedAt time.Time

	Result Result
}

// Result is derived from the external tool's outputs. Missing fields take
// the documented sentinel defaults (empty string / +Inf), never zero.
type Result struct {
	Status               Status
	CompileSuccessful    bool
	CorrectnessPassed    bool
	BestTime             float64 // seconds
	CyclesPerCall        float64
	CompileStderr        string // HTML
	InputCodeHighlighted string // HTML
	Disassembly          string // HTML
	DisassemblyWithSrc   string // HTML
	BenchmarkOutput      string // raw stdout/stderr of the measurement run
}

// NewResult returns a Result with the documented sentinel defaults.
func NewResult() Result {
	return Result{BestTime: math.Inf(1), CyclesPerCall: math.Inf(1)}
}

// Store roots all submission directories at <root>/submissions/<task>/<id>.
type Store struct {
	root string
}

// New creates a Store rooted at root (the directory containing
// "submissions/", "leaderboard/", "tasks/", and "runtime/").
func New(root string) *Store {
	return &Store{root: root}
}

// submissionCounter is a process-lifetime monotonic submission sequence, guarded by
// the caller's pipeline lock (ids are assigned under the single submission
// mutex so acceptance order is preserved).
var submissionCounter int

// NextID returns the next submission id of the form NNNN-XXXX: a
// monotonic, zero-padded counter plus four hex digits of randomness drawn
// from a UUIDv4. The caller must serialize calls (the HTTP surface does so
// under the pipeline lock); a collision is considered a bug, never handled
// defensively.
func NextID() string {
	submissionCounter++
	u := uuid.New()
	rand4 := fmt.Sprintf("%02x%02x", u[0], u[1])
	return fmt.Sprintf("%04d-%s", submissionCounter, rand4)
}

// Dir returns the submission's directory path.
func (s *Store) Dir(taskName, id string) string {
	return filepath.Join(s.root, "submissions", taskName, id)
}

// Create materializes a new submission directory with its five
// accept-time input files plus a copy of the task's benchmark harness. It
// errors if the directory already exists — submission directories are
// never overwritten.
func (s *Store) Create(sub *Submission, benchmarkSrc []byte) error {
	dir := s.Dir(sub.Task, sub.ID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("submission directory %s already exists", dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create submission dir %s: %w", dir, err)
	}

	files := map[string]string{
		"submitted_code.hpp": sub.Code,
		"flags.txt":          sub.Flags,
		"user_id":            sub.UserID,
		"author":             string(sub.Author),
		"ip":                 sub.IP,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "benchmark.cpp"), benchmarkSrc, 0o644); err != nil {
		return fmt.Errorf("write benchmark.cpp: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "submitted_at"), []byte(sub.SubmittedAt.Format(time.RFC3339Nano)), 0o644); err != nil {
		return fmt.Errorf("write submitted_at: %w", err)
	}
	return nil
}

// Load reads a submission back from disk. Each field defaults to its
// sentinel value when the corresponding file is absent; compile-success
// and correctness-passed are derived from the status code, never read
// independently from any other file.
func (s *Store) Load(taskName, id string) (*Submission, error) {
	dir := s.Dir(taskName, id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("submission %s/%s not found", taskName, id)
	}

	sub := &Submission{
		ID:     id,
		Task:   taskName,
		Code:   readOrEmpty(filepath.Join(dir, "submitted_code.hpp")),
		Flags:  readOrEmpty(filepath.Join(dir, "flags.txt")),
		UserID: readOrEmpty(filepath.Join(dir, "user_id")),
		Author: Author(readOrEmpty(filepath.Join(dir, "author"))),
		IP:     readOrEmpty(filepath.Join(dir, "ip")),
		Result: NewResult(),
	}

	if ts := readOrEmpty(filepath.Join(dir, "submitted_at")); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			sub.SubmittedAt = parsed
		}
	}

	sub.Result.Status = StatusFromExitCode(readExitCode(dir))
	sub.Result.CompileSuccessful = sub.Result.Status == StatusPass || sub.Result.Status == StatusCorrectnessFailure
	sub.Result.CorrectnessPassed = sub.Result.Status == StatusPass

	sub.Result.CompileStderr = readOrEmpty(filepath.Join(dir, "compile_stderr.log.html"))
	sub.Result.InputCodeHighlighted = readOrEmpty(filepath.Join(dir, "submitted_code.highlight.html"))
	sub.Result.BenchmarkOutput = readOrEmpty(filepath.Join(dir, "benchmark_output"))

	if sub.Result.CompileSuccessful {
		sub.Result.Disassembly = readOrEmpty(filepath.Join(dir, "disassembly.html"))
		sub.Result.DisassemblyWithSrc = readOrEmpty(filepath.Join(dir, "disassembly_with_source.html"))
	}

	if sub.Result.CorrectnessPassed {
		if bt := readOrEmpty(filepath.Join(dir, "best_time.txt")); bt != "" {
			fields := strings.Fields(bt)
			if len(fields) >= 1 {
				if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
					sub.Result.BestTime = v
				}
			}
			if len(fields) >= 2 {
				if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
					sub.Result.CyclesPerCall = v
				}
			}
		}
	}

	return sub, nil
}

// StatusFromExitCode maps a runner exit code to a Status: only 0, 1, and 2
// are distinguished; everything else is treated as a compile failure.
func StatusFromExitCode(code int, ok bool) Status {
	if !ok {
		return StatusUnknown
	}
	switch code {
	case 0:
		return StatusPass
	case 2:
		return StatusCorrectnessFailure
	default:
		return StatusCompileFailure
	}
}

// readExitCode reads the exit_code file, returning ok=false if absent.
func readExitCode(dir string) (code int, ok bool) {
	raw := readOrEmpty(filepath.Join(dir, "exit_code"))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func readOrEmpty(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return ""
	}
	return string(data)
}
