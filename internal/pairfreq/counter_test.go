package pairfreq

import "testing"

func TestCounterArgmax(t *testing.T) {
	c := New()
	c.Add(1, 2)
	c.Add(1, 2)
	c.Add(1, 2)
	c.Add(3, 4)

	a, b, count, ok := c.Argmax()
	if !ok || a != 1 || b != 2 || count != 3 {
		t.Fatalf("expected argmax (1,2,3), got (%d,%d,%d,%v)", a, b, count, ok)
	}
}

func TestCounterArgmaxTieBreakIsLexical(t *testing.T) {
	c := New()
	c.Add(5, 1)
	c.Add(2, 9)

	a, b, count, ok := c.Argmax()
	if !ok || a != 2 || b != 9 || count != 1 {
		t.Fatalf("expected lexically smaller pair (2,9) to win tie, got (%d,%d,%d,%v)", a, b, count, ok)
	}
}

func TestRebuildExcludesStringBoundaryPairs(t *testing.T) {
	// two strings: [10, 11] and [12, 13], concatenated
	tokens := []uint32{10, 11, 12, 13}
	stringStart := []bool{false, false, true, false}

	c := Rebuild(tokens, stringStart)
	if got := c.Count(11, 12); got != 0 {
		t.Fatalf("expected cross-string pair (11,12) to be excluded, got count %d", got)
	}
	if got := c.Count(10, 11); got != 1 {
		t.Fatalf("expected (10,11) count 1, got %d", got)
	}
	if got := c.Count(12, 13); got != 1 {
		t.Fatalf("expected (12,13) count 1, got %d", got)
	}
}
