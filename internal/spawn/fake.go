package spawn

import (
	"fmt"
	"sync"

	"github.com/mbrock/forkdrill/internal/action"
)

// FakeNodeFunc simulates the body of a fork/vfork child: it receives
// the node's own action and the remaining suffix and returns an exit
// code.
type FakeNodeFunc func(self action.Action, tail action.Sequence) int

// FakeSpawner is a test implementation of Spawner that runs nodes
// in-process. Fork and vfork run the registered node function on a
// goroutine; clone runs the given fn directly on a goroutine, as the
// real spawner does.
type FakeSpawner struct {
	mu      sync.Mutex
	node    FakeNodeFunc
	calls   []action.Action
	failOn  action.Action
	failErr error
}

// NewFakeSpawner creates a FakeSpawner with no node function; tests
// that only exercise Clone need not register one.
func NewFakeSpawner() *FakeSpawner {
	return &FakeSpawner{}
}

// Handle registers the function run by fork/vfork nodes.
func (s *FakeSpawner) Handle(fn FakeNodeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = fn
}

// FailCreation makes the next creations of the given action kind fail
// with err, for exercising the fatal-error paths.
func (s *FakeSpawner) FailCreation(a action.Action, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = a
	s.failErr = err
}

// Calls returns the creation primitives performed so far, in order.
func (s *FakeSpawner) Calls() []action.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]action.Action, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *FakeSpawner) Fork(tail action.Sequence) (Node, error) {
	return s.start(action.Fork, tail)
}

func (s *FakeSpawner) Vfork(tail action.Sequence) (Node, error) {
	return s.start(action.Vfork, tail)
}

func (s *FakeSpawner) Clone(fn func() error) (Node, error) {
	s.mu.Lock()
	if s.failOn == action.Clone && s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: clone: %v", ErrCreation, err)
	}
	s.calls = append(s.calls, action.Clone)
	s.mu.Unlock()
	return newCloneNode(fn, nil), nil
}

func (s *FakeSpawner) start(self action.Action, tail action.Sequence) (Node, error) {
	s.mu.Lock()
	node := s.node
	if s.failOn == self && s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %v", ErrCreation, self, err)
	}
	s.calls = append(s.calls, self)
	s.mu.Unlock()

	if node == nil {
		return nil, fmt.Errorf("%w: %s: no node function registered", ErrCreation, self)
	}

	// Copy the tail: the enumerator reuses its backing array and the
	// node runs on its own goroutine.
	suffix := make(action.Sequence, len(tail))
	copy(suffix, tail)

	n := &fakeNode{self: self, done: make(chan struct{})}
	go func() {
		defer close(n.done)
		n.code = node(self, suffix)
	}()
	return n, nil
}

// fakeNode implements Node for FakeSpawner fork/vfork children.
type fakeNode struct {
	self action.Action
	done chan struct{}
	code int
}

func (n *fakeNode) ID() string {
	return fmt.Sprintf("fake %s node", n.self)
}

func (n *fakeNode) Wait() (Status, error) {
	<-n.done
	return Status{Code: n.code}, nil
}
