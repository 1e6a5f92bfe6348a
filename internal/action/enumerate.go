package action

// Enumerate visits every sequence of the given depth exactly once, in a
// stable order: for each position the fork branch is fully enumerated
// before vfork, before clone. Depth 0 visits the single empty sequence.
// The sequence passed to visit is only valid for the duration of the
// call; copy it if it needs to outlive the callback.
//
// Enumeration stops at the first error returned by visit.
func Enumerate(depth int, visit func(Sequence) error) error {
	return enumerate(depth, make(Sequence, 0, depth), visit)
}

func enumerate(depth int, prefix Sequence, visit func(Sequence) error) error {
	if depth == 0 {
		return visit(prefix)
	}
	for _, a := range []Action{Fork, Vfork, Clone} {
		if err := enumerate(depth-1, append(prefix, a), visit); err != nil {
			return err
		}
	}
	return nil
}
