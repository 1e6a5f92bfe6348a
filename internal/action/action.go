// Package action defines the creation-primitive vocabulary for the nested
// process-tree exercise: which primitive a node performs, and ordered
// sequences of primitives that describe one test case.
package action

import "fmt"

// Action is one process-creation primitive.
type Action uint8

const (
	Empty Action = iota // no further creation; the node is a leaf
	Fork                // full duplication into an independent process
	Vfork               // duplication with the creator suspended until exec/exit
	Clone               // duplication sharing the filesystem context
)

func (a Action) String() string {
	switch a {
	case Empty:
		return "empty"
	case Fork:
		return "fork"
	case Vfork:
		return "vfork"
	case Clone:
		return "clone"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Digit is the single-character marker an executed action emits on the
// output stream: '1' for fork, '2' for vfork, '3' for clone.
func (a Action) Digit() byte {
	return '0' + byte(a)
}

// Sequence is an ordered list of actions; index 0 is performed first.
// One sequence describes one nested test case.
type Sequence []Action

// Encode renders the sequence as a digit string, first action first.
// This is both the wire form passed to re-exec'd tree nodes and the
// marker run the executed tree emits.
func (s Sequence) Encode() string {
	b := make([]byte, len(s))
	for i, a := range s {
		b[i] = a.Digit()
	}
	return string(b)
}

// Decode parses a digit string produced by Encode. Empty actions are not
// part of the wire form: a leaf is an empty string, not a '0'.
func Decode(s string) (Sequence, error) {
	seq := make(Sequence, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '1' || c > '3' {
			return nil, fmt.Errorf("invalid action digit %q at position %d", c, i)
		}
		seq[i] = Action(c - '0')
	}
	return seq, nil
}
