// Package tree runs the nested creation-primitive exercise: every
// action sequence of a fixed depth is executed as a real nested process
// tree, and every node's termination is validated.
package tree

import (
	"fmt"
	"io"

	"github.com/mbrock/forkdrill/internal/action"
	"github.com/mbrock/forkdrill/internal/spawn"
)

// Depth is the contract nesting depth: the full exercise runs
// 3^Depth sequences.
const Depth = 3

// Config holds the configuration for creating a Runner.
type Config struct {
	Spawner spawn.Spawner
	// Sink receives the markers. Writes must reach the shared stream
	// unbuffered; an *os.File qualifies, a bufio.Writer does not.
	Sink io.Writer
	// Depth is the nesting depth RunAll enumerates; zero is a genuine
	// depth and yields the single empty sequence. Callers wanting the
	// contract depth pass Depth explicitly.
	Depth int
}

// Runner executes the nested exercise.
type Runner struct {
	spawner spawn.Spawner
	sink    io.Writer
	depth   int
}

// NewRunner creates a Runner from cfg.
func NewRunner(cfg Config) *Runner {
	return &Runner{spawner: cfg.Spawner, sink: cfg.Sink, depth: cfg.Depth}
}

// RunAll enumerates every sequence at the configured depth, performs
// each one as a process tree, and emits a single space after each
// completed sequence. Any failure aborts the run.
func (r *Runner) RunAll() error {
	return action.Enumerate(r.depth, func(seq action.Sequence) error {
		if err := r.Perform(seq); err != nil {
			return err
		}
		if _, err := r.sink.Write([]byte{' '}); err != nil {
			return fmt.Errorf("writing separator: %w", err)
		}
		return nil
	})
}

// Perform dispatches on the head of seq: it creates one node with the
// head's primitive, hands it the remaining suffix, and blocks until
// that designated node terminates. An empty seq is a leaf and needs no
// work. Non-zero exit or death by signal of the child is fatal.
func (r *Runner) Perform(seq action.Sequence) error {
	if len(seq) == 0 {
		return nil
	}
	head, tail := seq[0], seq[1:]

	var (
		node spawn.Node
		err  error
	)
	switch head {
	case action.Fork:
		node, err = r.spawner.Fork(tail)
	case action.Vfork:
		node, err = r.spawner.Vfork(tail)
	case action.Clone:
		// The clone child runs in-process; emit its marker and recurse
		// on its own execution stack.
		suffix := make(action.Sequence, len(tail))
		copy(suffix, tail)
		node, err = r.spawner.Clone(func() error {
			return r.PerformChild(action.Clone, suffix)
		})
	case action.Empty:
		return nil
	default:
		return fmt.Errorf("unknown action %s", head)
	}
	if err != nil {
		return err
	}
	return r.await(node)
}

// PerformChild is the entry point for a freshly created node: emit the
// node's own marker, then continue dispatching the remaining suffix.
func (r *Runner) PerformChild(self action.Action, tail action.Sequence) error {
	if _, err := r.sink.Write([]byte{self.Digit()}); err != nil {
		return fmt.Errorf("writing %s marker: %w", self, err)
	}
	return r.Perform(tail)
}

// await blocks until the designated node terminates and validates its
// status.
func (r *Runner) await(node spawn.Node) error {
	st, err := node.Wait()
	if err != nil {
		return err
	}
	if st.Signaled() {
		return fmt.Errorf("child %s terminated by %s", node.ID(), st)
	}
	if st.Code != 0 {
		return fmt.Errorf("child %s terminated with %s", node.ID(), st)
	}
	return nil
}
