package fsshare

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mbrock/forkdrill/internal/action"
	"github.com/mbrock/forkdrill/internal/spawn"
)

// memContext is an in-memory filesystem context. Handing the same
// *memContext to two nodes shares it by reference; Copy models the
// private-per-process case.
type memContext struct {
	mu   sync.Mutex
	wd   string
	deny map[string]bool
}

func newMemContext(wd string) *memContext {
	return &memContext{wd: wd, deny: make(map[string]bool)}
}

func (c *memContext) Wd() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wd, nil
}

func (c *memContext) Chdir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deny[dir] {
		return fmt.Errorf("chdir %s: permission denied", dir)
	}
	c.wd = dir
	return nil
}

func (c *memContext) Copy() *memContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return newMemContext(c.wd)
}

func runShared(t *testing.T, fs Context, target string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Run(Config{
		Spawner: spawn.NewFakeSpawner(),
		Sink:    &buf,
		FS:      fs,
		Target:  target,
	})
	return buf.String(), err
}

func TestSharedMutationPropagates(t *testing.T) {
	fs := newMemContext("/home/user")
	out, err := runShared(t, fs, "/etc")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "/home/user\n/etc\n/etc\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if lines[0] == lines[1] {
		t.Errorf("child observed no mutation: %q", out)
	}
	if lines[1] != lines[2] {
		t.Errorf("parent did not observe the shared mutation: %q", out)
	}
}

func TestDefaultTargetApplied(t *testing.T) {
	fs := newMemContext("/home/user")
	out, err := runShared(t, fs, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "/home/user\n" + DefaultTarget + "\n" + DefaultTarget + "\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestCopiedContextStaysPrivate(t *testing.T) {
	parent := newMemContext("/home/user")
	child := parent.Copy()

	if err := child.Chdir("/etc"); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}

	childWd, _ := child.Wd()
	parentWd, _ := parent.Wd()
	if childWd != "/etc" {
		t.Errorf("child wd = %q, want /etc", childWd)
	}
	if parentWd != "/home/user" {
		t.Errorf("copied context leaked the mutation: parent wd = %q", parentWd)
	}
}

func TestChildFailureIsFatal(t *testing.T) {
	fs := newMemContext("/home/user")
	fs.deny["/etc"] = true

	_, err := runShared(t, fs, "/etc")
	if err == nil {
		t.Fatal("Run succeeded despite the child failing to chdir")
	}
	if !strings.Contains(err.Error(), "terminated with") {
		t.Fatalf("error %q does not identify the child failure", err)
	}
}

// lostNode is a node whose termination cannot be observed at all.
type lostNode struct{}

func (lostNode) ID() string { return "clone#7" }
func (lostNode) Wait() (spawn.Status, error) {
	return spawn.Status{}, fmt.Errorf("%w: clone#7: no child processes", spawn.ErrWait)
}

type lostSpawner struct{}

func (lostSpawner) Fork(action.Sequence) (spawn.Node, error)  { return lostNode{}, nil }
func (lostSpawner) Vfork(action.Sequence) (spawn.Node, error) { return lostNode{}, nil }
func (lostSpawner) Clone(func() error) (spawn.Node, error)    { return lostNode{}, nil }

func TestWaitFailureIsFatal(t *testing.T) {
	var buf bytes.Buffer
	err := Run(Config{
		Spawner: lostSpawner{},
		Sink:    &buf,
		FS:      newMemContext("/home/user"),
	})
	if !errors.Is(err, spawn.ErrWait) {
		t.Fatalf("Run returned %v, want ErrWait", err)
	}
	// The parent must not report its own observation after a failed
	// wait.
	if strings.Contains(buf.String(), "/home/user") {
		t.Fatalf("parent still observed the context: %q", buf.String())
	}
}

func TestCreationFailureIsFatal(t *testing.T) {
	fake := spawn.NewFakeSpawner()
	fake.FailCreation(action.Clone, errors.New("cannot allocate stack"))

	var buf bytes.Buffer
	err := Run(Config{Spawner: fake, Sink: &buf, FS: newMemContext("/")})
	if !errors.Is(err, spawn.ErrCreation) {
		t.Fatalf("Run returned %v, want ErrCreation", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("failed run still wrote %q", buf.String())
	}
}
