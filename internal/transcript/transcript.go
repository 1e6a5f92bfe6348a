// Package transcript renders the expected output of the exercises and
// compares captured output against it.
package transcript

import (
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/mbrock/forkdrill/internal/action"
)

// Nested returns the expected nested-exercise output at the given
// depth: one digit run per sequence in enumeration order, each
// followed by a single space.
func Nested(depth int) string {
	var b strings.Builder
	// Enumerate never fails when the visitor doesn't.
	_ = action.Enumerate(depth, func(seq action.Sequence) error {
		b.WriteString(seq.Encode())
		b.WriteByte(' ')
		return nil
	})
	return b.String()
}

// FSShare returns the expected filesystem-sharing output for a run
// starting in initial and mutating to target: the child sees initial
// before the mutation, and both child and parent see target after it.
func FSShare(initial, target string) string {
	return initial + "\n" + target + "\n" + target + "\n"
}

// Diff returns an empty string when got matches want, and a readable
// diff otherwise.
func Diff(want, got string) string {
	return cmp.Diff(want, got)
}
