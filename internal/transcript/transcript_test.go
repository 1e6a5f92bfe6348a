package transcript

import (
	"strings"
	"testing"
)

func TestNestedSmallDepths(t *testing.T) {
	cases := []struct {
		depth int
		want  string
	}{
		{0, " "},
		{1, "1 2 3 "},
		{2, "11 12 13 21 22 23 31 32 33 "},
	}
	for _, c := range cases {
		if got := Nested(c.depth); got != c.want {
			t.Errorf("Nested(%d) = %q, want %q", c.depth, got, c.want)
		}
	}
}

func TestNestedDepthThree(t *testing.T) {
	got := Nested(3)
	if !strings.HasSuffix(got, " ") {
		t.Fatalf("transcript %q lacks the trailing space", got)
	}
	runs := strings.Split(strings.TrimSuffix(got, " "), " ")
	if len(runs) != 27 {
		t.Fatalf("Nested(3) has %d sequences, want 27", len(runs))
	}
	if runs[0] != "111" || runs[26] != "333" {
		t.Fatalf("Nested(3) order is off: first %q, last %q", runs[0], runs[26])
	}
}

func TestFSShare(t *testing.T) {
	got := FSShare("/home/user", "/etc")
	want := "/home/user\n/etc\n/etc\n"
	if got != want {
		t.Fatalf("FSShare = %q, want %q", got, want)
	}
}

func TestDiff(t *testing.T) {
	if d := Diff("1 2 3 ", "1 2 3 "); d != "" {
		t.Errorf("Diff of equal transcripts = %q, want empty", d)
	}
	if d := Diff("1 2 3 ", "1 22 3 "); d == "" {
		t.Error("Diff missed a mismatch")
	}
}
