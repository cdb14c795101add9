// Package admission implements the static denylist filter applied to every
// submission before it is handed to the external compiler. Matching is
// lexical — no tokenization — and is deliberately conservative: it exists
// to block obvious escape attempts, not to fully sandbox the submission.
package admission

import (
	"regexp"
	"strings"

	"github.com/classbench/perfclass/internal/task"
)

// Decision is the outcome of admission review.
type Decision int

const (
	Accepted Decision = iota
	RejectedCode
	RejectedFlags
)

func (d Decision) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case RejectedCode:
		return "rejected_code"
	case RejectedFlags:
		return "rejected_flags"
	default:
		return "unknown"
	}
}

// sourceDenylistRegex covers process spawning, inline assembly, main-symbol
// hijacking, memory primitives, concurrency, and filesystem/stdio names.
// Some patterns are word-boundary, some are bare substrings; that mix is
// intentional (a conservative lexical filter, not a parser) and false
// positives are an accepted cost of simplicity. Compiled once at package
// init so the per-submission cost is just matching, not compiling.
var sourceDenylistRegex = compileAll([]string{
	// process spawning
	`system`, `execl*`, `execv*`, `fork`,
	// inline assembly
	`\basm`,
	// main-symbol hijacking
	`\bmain\b`, `argv`, `argc`, `\b_main\b`, `\bstart\b`,
	// memory primitives
	`calloc`, `malloc`, `free`, `\bnew\b`, `\bmmap\b`,
	// concurrency
	`pthread`, `async`, `launch`, `thread`,
	// filesystem and stdio
	`fstream`, `fopen`, `fputc`, `filesystem`, `directory_iterator`,
	`dirent`, `opendir`, `readdir`, `fread`, `fwrite`,
	`printf`, `puts`, `fputs`, `putc`, `\bcout\b`, `\bcerr\b`, `\bcin\b`,
})

// sourceDenylistLiteral covers digraphs and the preprocessor marker. The
// "#" ban is total: no preprocessor directives may appear in a submission.
var sourceDenylistLiteral = []string{"<%", "%>", "<:", ":>", "%:", "%:%:", "#"}

// flagDenylistLiteral is checked as a plain substring match against the
// raw flag string.
var flagDenylistLiteral = []string{";", "&&", "||", "|", "&", ".", "/", "<", ">"}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// ReviewCode checks submitted source text against the fixed denylist and the
// task's own additional patterns. Case-sensitive.
func ReviewCode(source string, spec *task.Spec) Decision {
	for _, re := range sourceDenylistRegex {
		if re.MatchString(source) {
			return RejectedCode
		}
	}
	for _, lit := range sourceDenylistLiteral {
		if strings.Contains(source, lit) {
			return RejectedCode
		}
	}
	if spec != nil {
		for _, re := range spec.DenylistPatterns {
			if re.MatchString(source) {
				return RejectedCode
			}
		}
	}
	return Accepted
}

// ReviewFlags checks a compiler-flag string against the literal flag
// denylist.
func ReviewFlags(flags string) Decision {
	for _, lit := range flagDenylistLiteral {
		if strings.Contains(flags, lit) {
			return RejectedFlags
		}
	}
	return Accepted
}

// Review runs both checks and returns the first rejection encountered,
// code before flags, matching the order submissions are validated at the
// HTTP surface.
func Review(source, flags string, spec *task.Spec) Decision {
	if d := ReviewCode(source, spec); d != Accepted {
		return d
	}
	return ReviewFlags(flags)
}
