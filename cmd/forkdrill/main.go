// forkdrill - deterministic process-creation exercises
//
// Usage:
//
//	forkdrill nested              Run the nested fork/vfork/clone exercise
//	forkdrill fsshare             Run the filesystem-sharing exercise
//	forkdrill expect              Print the expected nested transcript
//	forkdrill verify              Run both exercises and diff their output
//	forkdrill tree <actions>      (internal) Run as a re-exec'd tree node
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/mbrock/forkdrill/internal/action"
	"github.com/mbrock/forkdrill/internal/fsshare"
	"github.com/mbrock/forkdrill/internal/spawn"
	"github.com/mbrock/forkdrill/internal/transcript"
	"github.com/mbrock/forkdrill/internal/tree"
	"github.com/mbrock/forkdrill/internal/verify"
)

var (
	depthFlag  int
	targetFlag string
	ptyFlag    bool
)

func main() {
	// Handle the "tree" subcommand before flag parsing: it is the
	// re-exec entry for fork/vfork nodes and takes a bare digit-string
	// argument.
	if len(os.Args) >= 2 && os.Args[1] == spawn.TreeCommand {
		cmdTree()
		return
	}

	flag.IntVar(&depthFlag, "depth", tree.Depth, "Nesting depth for the nested exercise")
	flag.StringVar(&targetFlag, "target", fsshare.DefaultTarget, "Directory the fsshare child changes into")
	flag.BoolVar(&ptyFlag, "pty", false, "Capture verify output over a pseudo-terminal")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `forkdrill - deterministic process-creation exercises

Usage:
  forkdrill nested [--depth N]        Run the nested fork/vfork/clone exercise
  forkdrill fsshare [--target DIR]    Run the filesystem-sharing exercise
  forkdrill expect [--depth N]        Print the expected nested transcript
  forkdrill verify [--depth N] [--pty]
                                      Run both exercises and diff their output
  forkdrill tree <actions>            (internal) Run as a re-exec'd tree node

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "nested":
		cmdNested()
	case "fsshare":
		cmdFSShare()
	case "expect":
		fmt.Print(transcript.Nested(depthFlag))
	case "verify":
		cmdVerify()
	default:
		fatal(fmt.Sprintf("unknown command %q", args[0]))
	}
}

func cmdNested() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "note: writing transcript to a terminal; redirect stdout to capture it")
	}
	sp, err := spawn.NewProcSpawner()
	if err != nil {
		fatal(err.Error())
	}
	r := tree.NewRunner(tree.Config{Spawner: sp, Sink: os.Stdout, Depth: depthFlag})
	if err := r.RunAll(); err != nil {
		fatal(err.Error())
	}
}

func cmdFSShare() {
	sp, err := spawn.NewProcSpawner()
	if err != nil {
		fatal(err.Error())
	}
	err = fsshare.Run(fsshare.Config{
		Spawner: sp,
		Sink:    os.Stdout,
		FS:      fsshare.OS(),
		Target:  targetFlag,
	})
	if err != nil {
		fatal(err.Error())
	}
}

func cmdVerify() {
	opts := verify.Options{Depth: depthFlag, PTY: ptyFlag}

	failed := false
	nested, err := verify.Nested(opts)
	if err != nil {
		fatal(err.Error())
	}
	if !nested.OK() {
		fmt.Fprintf(os.Stderr, "nested transcript mismatch (-want +got):\n%s", nested.Diff)
		failed = true
	}

	fs, err := verify.FSShare(opts)
	if err != nil {
		fatal(err.Error())
	}
	if !fs.OK() {
		fmt.Fprintf(os.Stderr, "fsshare transcript mismatch (-want +got):\n%s", fs.Diff)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("ok")
}

// cmdTree runs one re-exec'd node of a process tree: the first digit
// of the argument is this node's own action, the rest is the remaining
// suffix to perform.
func cmdTree() {
	if len(os.Args) != 3 {
		fatal("usage: forkdrill tree <actions>")
	}
	seq, err := action.Decode(os.Args[2])
	if err != nil {
		fatal(err.Error())
	}
	if len(seq) == 0 {
		fatal("tree node needs at least its own action")
	}
	sp, err := spawn.NewProcSpawner()
	if err != nil {
		fatal(err.Error())
	}
	r := tree.NewRunner(tree.Config{Spawner: sp, Sink: os.Stdout})
	if err := r.PerformChild(seq[0], seq[1:]); err != nil {
		fatal(err.Error())
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "forkdrill:", msg)
	os.Exit(1)
}
