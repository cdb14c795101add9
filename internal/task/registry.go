// Package task loads and exposes per-task configuration: the benchmarked
// symbol, the benchmark harness source, and any task-specific denylist
// patterns. A Spec is loaded once at startup and is immutable thereafter.
package task

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is the opaque, read-only configuration for one benchmarked task.
type Spec struct {
	Name          string // directory name under tasks/
	Symbol        string // function symbol to disassemble
	BenchmarkPath string // path to benchmark.cpp
	BenchmarkSrc  []byte // contents of benchmark.cpp, cached at load time

	// DenylistPatterns are additional task-specific regexes (e.g. forbidding
	// the reference implementation) applied with the same semantics as the
	// fixed admission-gate denylist.
	DenylistPatterns []*regexp.Regexp

	// Title and Description are optional display metadata sourced from an
	// optional tasks/<name>/task.yaml file.
	Title       string
	Description string
}

// meta mirrors the optional task.yaml file.
type meta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Load reads tasks/<name>/ and returns its Spec. It fails if the task
// directory, the symbol file, or the benchmark source is missing — these
// are fatal startup errors, mapped by the caller to exit 1.
func Load(tasksDir, name string) (*Spec, error) {
	dir := filepath.Join(tasksDir, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("task directory %q not found", dir)
	}

	symbolPath := filepath.Join(dir, "symbol")
	symbolRaw, err := os.ReadFile(symbolPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", symbolPath, err)
	}
	symbol := strings.TrimSpace(string(symbolRaw))
	if symbol == "" {
		return nil, fmt.Errorf("%s is empty", symbolPath)
	}

	benchPath := filepath.Join(dir, "benchmark.cpp")
	benchSrc, err := os.ReadFile(benchPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", benchPath, err)
	}

	spec := &Spec{
		Name:          name,
		Symbol:        symbol,
		BenchmarkPath: benchPath,
		BenchmarkSrc:  benchSrc,
	}

	denylistPath := filepath.Join(dir, "bad_code.regex")
	if raw, err := os.ReadFile(denylistPath); err == nil {
		for i, line := range strings.Split(string(raw), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			re, err := regexp.Compile(line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid pattern %q: %w", denylistPath, i+1, line, err)
			}
			spec.DenylistPatterns = append(spec.DenylistPatterns, re)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", denylistPath, err)
	}

	metaPath := filepath.Join(dir, "task.yaml")
	if raw, err := os.ReadFile(metaPath); err == nil {
		var m meta
		if err := yaml.Unmarshal(raw, &m); err != nil {
			slog.Warn("ignoring malformed task.yaml", "task", name, "error", err)
		} else {
			spec.Title = m.Title
			spec.Description = m.Description
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", metaPath, err)
	}

	slog.Info("loaded task", "name", name, "symbol", symbol, "denylist_patterns", len(spec.DenylistPatterns))
	return spec, nil
}
