package rope

import "testing"

func TestLineIndexing(t *testing.T) {
	r := New("a\nb\nc\n")
	if r.LineCount() != 4 {
		t.Fatalf("LineCount: got %d want 4", r.LineCount())
	}
	if got := r.Line(0); got != "a" {
		t.Fatalf("Line(0): got %q", got)
	}
	if got := r.Line(3); got != "" {
		t.Fatalf("Line(3): got %q", got)
	}
	if r.LineOf(2) != 1 {
		t.Fatalf("LineOf(2): got %d want 1", r.LineOf(2))
	}
}

func TestSpliceDoesNotMutateReceiver(t *testing.T) {
	r := New("hello")
	r2 := r.Splice(0, 0, "X")
	if r.String() != "hello" {
		t.Fatalf("Splice mutated receiver: %q", r.String())
	}
	if r2.String() != "Xhello" {
		t.Fatalf("Splice result: got %q", r2.String())
	}
}

func TestReplaceInPlace(t *testing.T) {
	r := New("a\nb\nc\n")
	r.ReplaceInPlace(1, 1, "X")
	if r.String() != "aX\nb\nc\n" {
		t.Fatalf("got %q", r.String())
	}
	if r.LineCount() != 4 {
		t.Fatalf("reindex failed: LineCount=%d", r.LineCount())
	}
}

func TestClampRange(t *testing.T) {
	r := New("abc")
	if got := r.Slice(-5, 100); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
