// Package runner implements the build-and-measure stage: it materializes a
// submission's files, invokes the external compile/measure script, and
// classifies its exit code into a status. The runner's contract is
// strictly "spawn, wait, classify" — it imposes no timeout or resource
// limit of its own; that is the external script's responsibility.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/classbench/perfclass/internal/store"
	"github.com/classbench/perfclass/internal/task"
)

// Request describes one build-and-measure invocation.
type Request struct {
	Task       *task.Spec
	Store      *store.Store
	Submission *store.Submission
	ScriptPath string // absolute path to runtime/compile.sh
}

// Run prepares the submission directory, invokes compile.sh, and writes
// the resulting exit code back to the store. It returns the exit-code
// derived Status; the caller (the HTTP surface) decides whether that
// yields a leaderboard candidate.
func Run(ctx context.Context, req Request) (store.Status, error) {
	if err := req.Store.Create(req.Submission, req.Task.BenchmarkSrc); err != nil {
		return store.StatusUnknown, fmt.Errorf("prepare submission dir: %w", err)
	}

	dir := req.Store.Dir(req.Submission.Task, req.Submission.ID)

	slog.Debug("spawning compile script", "task", req.Submission.Task, "submission", req.Submission.ID, "dir", dir)

	cmd := exec.CommandContext(ctx, "/bin/bash", req.ScriptPath, dir, req.Task.Symbol)
	cmd.Env = SanitizedEnv()
	setupProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	code, ok := extractExitCode(runErr)
	if !ok {
		return store.StatusUnknown, fmt.Errorf("spawn compile script: %w", runErr)
	}
	code = code % 256
	if code < 0 {
		code += 256
	}

	if err := writeExitCode(dir, code); err != nil {
		return store.StatusUnknown, fmt.Errorf("record exit code: %w", err)
	}

	status := store.StatusFromExitCode(code, true)
	slog.Info("compile script finished", "task", req.Submission.Task, "submission", req.Submission.ID,
		"exit_code", code, "status", status, "elapsed", elapsed)

	return status, nil
}

// writeExitCode records the exit code (already reduced modulo 256, not yet
// mapped to a Status) as an ASCII integer. The
// compile script writes every other output file directly into
// the submission directory as a side effect of running; exit_code is the
// one artifact only the Go process — the one that actually waited on the
// subprocess — can produce.
func writeExitCode(dir string, code int) error {
	return os.WriteFile(filepath.Join(dir, "exit_code"), []byte(strconv.Itoa(code)), 0o644)
}

// extractExitCode pulls the raw exit code out of the error returned by
// cmd.Run(). A nil error means exit 0. Any non-ExitError (e.g. the binary
// could not be spawned at all) is not classifiable and ok is false.
func extractExitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	if exitErr, isExit := err.(*exec.ExitError); isExit {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
