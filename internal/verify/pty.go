package verify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// capturePTY runs cmd with its stdout on a pseudo-terminal slave and
// reads the transcript back from the master. The slave is put in raw
// mode first so the line discipline does not remap newlines or echo;
// the captured bytes are exactly what the harness wrote.
func capturePTY(cmd *exec.Cmd, stderr io.Writer) (string, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return "", fmt.Errorf("opening pty: %w", err)
	}
	defer ptmx.Close()

	if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
		tty.Close()
		return "", fmt.Errorf("setting pty raw mode: %w", err)
	}

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		tty.Close()
		return "", fmt.Errorf("starting harness: %w", err)
	}
	// The child holds its own slave descriptors now; close ours so the
	// master sees EOF when the tree has exited.
	tty.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, ptmx); err != nil && !errors.Is(err, syscall.EIO) {
		// Linux reports EIO on the master once the slave side closes.
		return "", fmt.Errorf("reading pty: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("harness failed: %w", err)
	}
	return buf.String(), nil
}
