package server

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// pre, green, and red wrap a string in the minimal inline markup the
// submission-result template expects in its ${COMPILE_STATUS},
// ${CORRECTNESS_TEST}, and ${COMPILER_OUTPUT}/${DISASSEMBLY} slots.
func pre(s string) string { return "<pre>" + s + "</pre>" }

func green(s string) string { return "<span style='color:green;'>" + s + "</span>" }

func red(s string) string { return "<span style='color:red;'>" + s + "</span>" }

// formatTime renders a wall-clock duration in seconds as milliseconds to
// three decimal places, matching the display the benchmark harness authors
// are used to reading. A missing (+Inf) best time renders as an em dash
// rather than the surprising "+Infms".
func formatTime(seconds float64) string {
	if math.IsInf(seconds, 1) {
		return "—"
	}
	return fmt.Sprintf("%.3fms", seconds*1000.0)
}

// cyclesDisplay comma-formats a cycles-per-call count, or an em dash when
// the value is the sentinel +Inf default (cycles-per-call absent).
func cyclesDisplay(cycles float64) string {
	if math.IsInf(cycles, 1) {
		return "—"
	}
	return humanize.Comma(int64(cycles))
}

func statusBadge(ok bool, label string) string {
	if ok {
		return green(label)
	}
	return red(label)
}
