// Package integration runs the built forkdrill binary end to end and
// checks its transcripts against the expected output.
package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

var (
	buildOnce sync.Once
	buildPath string
	buildErr  error
)

// forkdrillBinary builds cmd/forkdrill once per test run and returns
// the path to the binary.
func forkdrillBinary() (string, error) {
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "forkdrill-test-*")
		if err != nil {
			buildErr = fmt.Errorf("create temp dir: %w", err)
			return
		}
		buildPath = filepath.Join(dir, "forkdrill")
		cmd := exec.Command("go", "build", "-o", buildPath, "./cmd/forkdrill/")
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("build forkdrill: %v\n%s", err, out)
		}
	})
	return buildPath, buildErr
}

// run executes the binary with args and returns stdout, stderr and the
// exit code.
func run(bin string, args ...string) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.Command(bin, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), exitErr.ExitCode(), nil
		}
		return "", "", -1, runErr
	}
	return outBuf.String(), errBuf.String(), 0, nil
}
