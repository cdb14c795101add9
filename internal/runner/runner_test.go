package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/classbench/perfclass/internal/store"
	"github.com/classbench/perfclass/internal/task"
)

func writeScript(t *testing.T, root, body string) string {
	t.Helper()
	path := filepath.Join(root, "compile.sh")
	if err := os.WriteFile(path, []byte("#!/bin/bash\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRequest(t *testing.T, root, scriptPath string, id string) Request {
	t.Helper()
	s := store.New(root)
	spec := &task.Spec{Name: "atan", Symbol: "student_atan", BenchmarkSrc: []byte("// bench")}
	sub := &store.Submission{
		ID:          id,
		Task:        "atan",
		UserID:      "u1",
		Code:        "float f(float x){return x;}",
		Flags:       "-O2",
		Author:      store.AuthorHuman,
		SubmittedAt: time.Now(),
	}
	return Request{Task: spec, Store: s, Submission: sub, ScriptPath: scriptPath}
}

func TestRun_Success(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, `
dir="$1"
echo "0.002 123.4" > "$dir/best_time.txt"
exit 0
`)
	req := newRequest(t, root, script, "0001-aaaa")
	status, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != store.StatusPass {
		t.Fatalf("status = %v, want StatusPass", status)
	}

	loaded, err := req.Store.Load("atan", "0001-aaaa")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Result.CorrectnessPassed {
		t.Error("expected correctness passed")
	}
	if loaded.Result.BestTime != 0.002 {
		t.Errorf("best_time = %v", loaded.Result.BestTime)
	}
}

func TestRun_CompileFailure(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, "exit 1\n")
	req := newRequest(t, root, script, "0002-bbbb")
	status, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != store.StatusCompileFailure {
		t.Fatalf("status = %v, want StatusCompileFailure", status)
	}
}

func TestRun_CorrectnessFailure(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, "exit 2\n")
	req := newRequest(t, root, script, "0003-cccc")
	status, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != store.StatusCorrectnessFailure {
		t.Fatalf("status = %v, want StatusCorrectnessFailure", status)
	}
}

func TestRun_OtherExitCodeTreatedAsCompileFailure(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, "exit 42\n")
	req := newRequest(t, root, script, "0004-dddd")
	status, err := Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != store.StatusCompileFailure {
		t.Fatalf("status = %v, want StatusCompileFailure", status)
	}
}

func TestRun_ReceivesSubmissionDirAndSymbolArgs(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, `
echo "$1" > "$1/.dir_arg"
echo "$2" > "$1/.symbol_arg"
exit 0
`)
	req := newRequest(t, root, script, "0005-eeee")
	if _, err := Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	dir := req.Store.Dir("atan", "0005-eeee")
	symArg, err := os.ReadFile(filepath.Join(dir, ".symbol_arg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(symArg) != "student_atan\n" {
		t.Errorf("symbol arg = %q", symArg)
	}
}
