// Package spawn realizes the three creation primitives used by the
// process-tree exercises: fork (independent process), vfork (creator
// suspended until the child execs or exits), and clone with a shared
// filesystem context.
package spawn

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mbrock/forkdrill/internal/action"
)

// ErrCreation reports a failed creation primitive. Allocation of the
// child's execution stack is part of creation, so stack failures
// surface under this kind too.
var ErrCreation = errors.New("creation primitive failed")

// ErrWait reports a failure to observe a designated child's termination.
var ErrWait = errors.New("wait failed")

// Status is the termination status of a node: either a normal exit with
// a code, or death by signal.
type Status struct {
	Code   int
	Signal unix.Signal // 0 when the node exited normally
}

// Success reports a normal exit with status 0.
func (s Status) Success() bool {
	return s.Signal == 0 && s.Code == 0
}

// Signaled reports termination by signal.
func (s Status) Signaled() bool {
	return s.Signal != 0
}

func (s Status) String() string {
	if s.Signaled() {
		return fmt.Sprintf("signal: %s", unix.SignalName(s.Signal))
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Node is one created execution context in a process tree.
type Node interface {
	// ID identifies the node in diagnostics, e.g. "pid 4242" or "clone#3".
	ID() string
	// Wait blocks until this specific node terminates and returns its
	// status. The error is non-nil only when the termination could not
	// be observed at all (ErrWait); abnormal termination is a Status.
	Wait() (Status, error)
}

// Spawner creates nodes. Fork and Vfork carry the remaining action
// suffix across the creation boundary; the new node emits its own
// marker and performs the suffix. Clone runs fn on a fresh execution
// stack sharing the creator's filesystem context.
type Spawner interface {
	Fork(tail action.Sequence) (Node, error)
	Vfork(tail action.Sequence) (Node, error)
	Clone(fn func() error) (Node, error)
}
