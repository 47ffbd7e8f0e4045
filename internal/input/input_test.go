package input

import "testing"

func TestStickyPrefixMatchForGG(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	if _, ok := h.Feed("g"); ok {
		t.Fatal("expected 'g' alone to stay pending (prefix of gg)")
	}
	r, ok := h.Feed("g")
	if !ok || r.Action != "cursor.doc_start" {
		t.Fatalf("expected gg to resolve to cursor.doc_start, got %+v ok=%v", r, ok)
	}
}

func TestCountPrefixParsed(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	for _, k := range []string{"3", "d", "d"} {
		r, ok := h.Feed(k)
		if k == "d" && !ok {
			continue
		}
		if ok {
			if r.Count != 3 || r.Action != "edit.delete_line" {
				t.Fatalf("expected count=3 action=edit.delete_line, got %+v", r)
			}
			return
		}
	}
	t.Fatal("expected 3dd to resolve")
}

func TestRegisterPrefixParsed(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.Feed("\"a")
	r, ok := h.Feed("y")
	if ok {
		t.Fatalf("expected 'y' alone to stay pending for yy, got %+v", r)
	}
	r, ok = h.Feed("y")
	if !ok || r.Register != 'a' || r.Action != "edit.yank_line" {
		t.Fatalf("expected register a yank_line, got %+v ok=%v", r, ok)
	}
}

func TestInsertModePassesThroughPrintableRunes(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.SetMode(ModeInsert)
	if _, ok := h.Feed("x"); ok {
		t.Fatal("expected printable rune in insert mode to not resolve as a command")
	}
}

func TestUnknownSequenceResetsPending(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.Feed("d") // "d" alone has no action, only "dd"/"dw" children: pure Prefix
	if _, ok := h.Feed("z"); ok {
		t.Fatal("expected no match")
	}
	if len(h.PendingSequence()) != 0 {
		t.Fatal("expected pending sequence cleared after a failed lookup")
	}
}

// TestStickyMatchCommitsOnCancellation covers the non-Escape cancellation
// case: "g" alone is a sticky ExactWithContinuation match (cursor.doc_start),
// "g e" is a longer binding (cursor.doc_end). A second key that extends
// neither should commit the sticky action rather than silently drop it.
func TestStickyMatchCommitsOnCancellation(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	if _, ok := h.Feed("g"); ok {
		t.Fatal("expected 'g' alone to stay pending as a sticky match")
	}
	r, ok := h.Feed("z")
	if !ok || r.Action != "cursor.doc_start" {
		t.Fatalf("expected cancellation to commit the sticky cursor.doc_start match, got %+v ok=%v", r, ok)
	}
}

// TestStickyMatchSupersededByLongerBinding covers the case where the next
// key DOES extend the sticky match into a bound longer sequence: "g e"
// should fire cursor.doc_end instead of the sticky cursor.doc_start.
func TestStickyMatchSupersededByLongerBinding(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.Feed("g")
	r, ok := h.Feed("e")
	if !ok || r.Action != "cursor.doc_end" {
		t.Fatalf("expected 'g e' to resolve to cursor.doc_end, got %+v ok=%v", r, ok)
	}
}

// TestEscapeCancelsStickyWithoutCommitting matches spec.md §8 scenario 6's
// Escape-clears-the-sequence case exactly: pressing Escape while "g" is
// armed as a sticky match must not fire cursor.doc_start.
func TestEscapeCancelsStickyWithoutCommitting(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.Feed("g")
	if _, ok := h.Feed("esc"); ok {
		t.Fatal("expected Escape to cancel the sticky match rather than commit it")
	}
	if len(h.PendingSequence()) != 0 {
		t.Fatal("expected pending sequence cleared after Escape")
	}
}

// TestStickyMatchCommitsOnTick exercises Handler.Tick, the path a frame
// loop uses to commit a sticky match once stickyTimeout elapses with no
// further key arriving.
func TestStickyMatchCommitsOnTick(t *testing.T) {
	h := NewHandler(DefaultKeymap())
	h.Feed("g")
	if _, ok := h.Tick(h.stickyAt.Add(stickyTimeout / 2)); ok {
		t.Fatal("expected Tick to report no commit before stickyTimeout elapses")
	}
	r, ok := h.Tick(h.stickyAt.Add(stickyTimeout + 1))
	if !ok || r.Action != "cursor.doc_start" {
		t.Fatalf("expected Tick past stickyTimeout to commit cursor.doc_start, got %+v ok=%v", r, ok)
	}
}
