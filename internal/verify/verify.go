// Package verify runs the harness binary, captures its output stream,
// and diffs it against the expected transcript. It distinguishes an
// internal harness failure (non-zero exit, diagnostics on stderr) from
// a content mismatch.
package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/mbrock/forkdrill/internal/fsshare"
	"github.com/mbrock/forkdrill/internal/transcript"
)

// Options configures a verification run.
type Options struct {
	// Binary is the harness to run; the current executable when empty.
	Binary string
	// Depth is the nested-exercise depth; zero is a genuine depth
	// (the single empty sequence), not a request for the default.
	Depth int
	// PTY captures the output over a pseudo-terminal instead of a
	// pipe, exercising the unbuffered-write discipline under a line
	// discipline.
	PTY bool
	// Stderr receives the harness's diagnostic channel; os.Stderr when
	// nil.
	Stderr io.Writer
}

// Result is the outcome of one verified run.
type Result struct {
	Output string
	Diff   string // empty when the output matched the transcript
}

// OK reports whether the captured output matched.
func (r *Result) OK() bool {
	return r.Diff == ""
}

// Nested runs the nested exercise and diffs it against the expected
// transcript for the configured depth.
func Nested(opts Options) (*Result, error) {
	bin, depth, err := opts.defaults()
	if err != nil {
		return nil, err
	}
	out, err := opts.capture(exec.Command(bin, "nested", "--depth", strconv.Itoa(depth)))
	if err != nil {
		return nil, err
	}
	return &Result{Output: out, Diff: transcript.Diff(transcript.Nested(depth), out)}, nil
}

// FSShare runs the filesystem-sharing exercise. The harness inherits
// this process's working directory, so the expected transcript starts
// there and ends at the mutation target.
func FSShare(opts Options) (*Result, error) {
	bin, _, err := opts.defaults()
	if err != nil {
		return nil, err
	}
	initial, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("reading cwd: %w", err)
	}
	out, err := opts.capture(exec.Command(bin, "fsshare"))
	if err != nil {
		return nil, err
	}
	want := transcript.FSShare(initial, fsshare.DefaultTarget)
	return &Result{Output: out, Diff: transcript.Diff(want, out)}, nil
}

func (o Options) defaults() (bin string, depth int, err error) {
	bin = o.Binary
	if bin == "" {
		bin, err = os.Executable()
		if err != nil {
			return "", 0, fmt.Errorf("locating harness binary: %w", err)
		}
	}
	return bin, o.Depth, nil
}

func (o Options) capture(cmd *exec.Cmd) (string, error) {
	stderr := o.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	if o.PTY {
		return capturePTY(cmd, stderr)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("harness failed: %w", err)
	}
	return buf.String(), nil
}
