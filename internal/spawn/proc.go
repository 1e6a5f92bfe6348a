package spawn

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/mbrock/forkdrill/internal/action"
)

// TreeCommand is the internal subcommand a re-exec'd node runs. Its
// single argument is the node's own action followed by the remaining
// suffix, in digit-string form.
const TreeCommand = "tree"

// ProcSpawner creates real nodes. Fork and vfork re-exec the harness
// binary, which inherits stdout and stderr so that all nodes of a tree
// write to the same stream. Clone runs the child function on a fresh
// goroutine: the filesystem context (cwd, root) is per-process, so the
// creator and the created context share it by reference, which is the
// CLONE_FS contract.
type ProcSpawner struct {
	exe    string
	stdout *os.File
	stderr *os.File
}

// NewProcSpawner returns a spawner that re-execs the current binary and
// hands the process's stdout/stderr to created nodes.
func NewProcSpawner() (*ProcSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating harness binary: %w", err)
	}
	return &ProcSpawner{exe: exe, stdout: os.Stdout, stderr: os.Stderr}, nil
}

func (s *ProcSpawner) Fork(tail action.Sequence) (Node, error) {
	return s.spawn(action.Fork, tail, 0)
}

// Vfork adds CLONE_VFORK to the clone flags, so the creator stays
// suspended inside clone(2) until the child has exec'd or exited.
func (s *ProcSpawner) Vfork(tail action.Sequence) (Node, error) {
	return s.spawn(action.Vfork, tail, unix.CLONE_VFORK)
}

func (s *ProcSpawner) spawn(self action.Action, tail action.Sequence, flags uintptr) (Node, error) {
	arg := append(action.Sequence{self}, tail...).Encode()
	cmd := exec.Command(s.exe, TreeCommand, arg)
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if flags != 0 {
		cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: flags}
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCreation, self, err)
	}
	return &procNode{cmd: cmd}, nil
}

// procNode is a node realized as a separate OS process.
type procNode struct {
	cmd *exec.Cmd
}

func (n *procNode) ID() string {
	return fmt.Sprintf("pid %d", n.cmd.Process.Pid)
}

func (n *procNode) Wait() (Status, error) {
	err := n.cmd.Wait()
	if err == nil {
		return Status{}, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Status{}, fmt.Errorf("%w: %s: %v", ErrWait, n.ID(), err)
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return Status{}, fmt.Errorf("%w: %s: unexpected wait status %v", ErrWait, n.ID(), exitErr.Sys())
	}
	if ws.Signaled() {
		return Status{Signal: unix.Signal(ws.Signal())}, nil
	}
	return Status{Code: ws.ExitStatus()}, nil
}

var cloneSeq atomic.Int64

// Clone runs fn on a new goroutine and reports its outcome as the
// node's termination status: nil is exit 0, any error is exit 1. The
// goroutine's runtime stack is the node's freshly allocated execution
// stack.
func (s *ProcSpawner) Clone(fn func() error) (Node, error) {
	n := newCloneNode(fn, s.stderr)
	return n, nil
}

// cloneNode is a node realized as a goroutine in the creator's process.
type cloneNode struct {
	id   int64
	done chan struct{}

	mu     sync.Mutex
	status Status
}

func newCloneNode(fn func() error, stderr *os.File) *cloneNode {
	n := &cloneNode{
		id:   cloneSeq.Add(1),
		done: make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		if err := fn(); err != nil {
			if stderr != nil {
				fmt.Fprintf(stderr, "%s: %v\n", n.ID(), err)
			}
			n.mu.Lock()
			n.status = Status{Code: 1}
			n.mu.Unlock()
		}
	}()
	return n
}

func (n *cloneNode) ID() string {
	return fmt.Sprintf("clone#%d", n.id)
}

func (n *cloneNode) Wait() (Status, error) {
	<-n.done
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status, nil
}
