// Package fsshare runs the filesystem-sharing exercise: a single
// clone-style child shares the creator's filesystem context, mutates
// it by changing directory, and both sides report what they observe.
package fsshare

import (
	"fmt"
	"io"
	"os"

	"github.com/mbrock/forkdrill/internal/spawn"
)

// DefaultTarget is the directory the child changes into. It exists on
// any Linux system and differs from any plausible starting directory.
const DefaultTarget = "/etc"

// Context is the filesystem context a node observes and mutates. Two
// nodes that share a Context by reference see each other's mutations
// immediately; handing each node its own Context models a full copy.
type Context interface {
	Wd() (string, error)
	Chdir(dir string) error
}

// OS returns the process-wide filesystem context. A cloned goroutine
// node shares it with its creator by construction, which is exactly
// the CLONE_FS sharing rule.
func OS() Context {
	return osContext{}
}

type osContext struct{}

func (osContext) Wd() (string, error)    { return os.Getwd() }
func (osContext) Chdir(dir string) error { return os.Chdir(dir) }

// Config holds the configuration for one run of the exercise.
type Config struct {
	Spawner spawn.Spawner
	// Sink receives one cwd string per line: child pre-mutation, child
	// post-mutation, parent post-mutation.
	Sink io.Writer
	// FS is the shared filesystem context; OS() for the real exercise.
	FS Context
	// Target is the directory the child changes into; DefaultTarget
	// when empty.
	Target string
}

// Run performs the exercise. The parent blocks until the designated
// child has terminated before observing the context, so the child's
// mutation happens before the parent's observation. Any failure of the
// primitive, the wait, or the child itself is fatal to the run.
func Run(cfg Config) error {
	target := cfg.Target
	if target == "" {
		target = DefaultTarget
	}

	child, err := cfg.Spawner.Clone(func() error {
		return childFunc(cfg.FS, cfg.Sink, target)
	})
	if err != nil {
		return err
	}

	st, err := child.Wait()
	if err != nil {
		return err
	}
	if !st.Success() {
		return fmt.Errorf("child %s terminated with %s", child.ID(), st)
	}

	wd, err := cfg.FS.Wd()
	if err != nil {
		return fmt.Errorf("parent reading cwd: %w", err)
	}
	if _, err := fmt.Fprintln(cfg.Sink, wd); err != nil {
		return fmt.Errorf("writing parent cwd: %w", err)
	}
	return nil
}

// childFunc is the cloned node's body: observe, mutate, observe.
func childFunc(fs Context, sink io.Writer, target string) error {
	wd, err := fs.Wd()
	if err != nil {
		return fmt.Errorf("child reading cwd: %w", err)
	}
	if _, err := fmt.Fprintln(sink, wd); err != nil {
		return fmt.Errorf("writing pre-mutation cwd: %w", err)
	}

	if err := fs.Chdir(target); err != nil {
		return fmt.Errorf("child changing directory to %s: %w", target, err)
	}

	wd, err = fs.Wd()
	if err != nil {
		return fmt.Errorf("child rereading cwd: %w", err)
	}
	if _, err := fmt.Fprintln(sink, wd); err != nil {
		return fmt.Errorf("writing post-mutation cwd: %w", err)
	}
	return nil
}
