package transaction

import (
	"testing"

	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
)

func TestInvertRestoresRope(t *testing.T) {
	doc := rope.New("hello world")
	tx := Change(doc, []Change{{Start: 6, End: 11, Replacement: "there"}})
	after, _, err := tx.Apply(doc)
	if err != nil {
		t.Fatal(err)
	}
	if after.String() != "hello there" {
		t.Fatalf("got %q", after.String())
	}
	inv := tx.Invert(doc)
	restored, _, err := inv.Apply(after)
	if err != nil {
		t.Fatal(err)
	}
	if restored.String() != doc.String() {
		t.Fatalf("invert did not restore: got %q want %q", restored.String(), doc.String())
	}
}

func TestMapPosMonotonic(t *testing.T) {
	doc := rope.New("abcdef")
	tx := Change(doc, []Change{{Start: 2, End: 2, Replacement: "XYZ"}})
	prev := rope.CharIdx(-1)
	for p := rope.CharIdx(0); p <= rope.CharIdx(doc.Len()); p++ {
		mapped := tx.Changes.MapPos(p, BiasRight)
		if mapped < prev {
			t.Fatalf("MapPos not monotonic at p=%d: got %d after %d", p, mapped, prev)
		}
		if mapped < 0 || mapped > rope.CharIdx(tx.Changes.LenAfter()) {
			t.Fatalf("MapPos out of bounds at p=%d: %d", p, mapped)
		}
		prev = mapped
	}
}

func TestMapSelectionPreservesDirectionAndClamps(t *testing.T) {
	doc := rope.New("a\nb\nc\n")
	sel := selection.New(selection.Range{Anchor: 2, Head: 2})
	tx := InsertAt(doc, sel, "X")
	mapped := tx.Selection
	if mapped.Primary().Anchor != mapped.Primary().Head {
		t.Fatalf("expected collapsed point range after insert, got %+v", mapped.Primary())
	}
	if mapped.Primary().From() < 0 {
		t.Fatalf("selection escaped lower bound")
	}
}

func TestComposeMatchesSequentialApply(t *testing.T) {
	doc := rope.New("hello")
	a := Change(doc, []Change{{Start: 0, End: 0, Replacement: "["}})
	mid, _, err := a.Apply(doc)
	if err != nil {
		t.Fatal(err)
	}
	b := Change(mid, []Change{{Start: mid.LineEnd(0), End: mid.LineEnd(0), Replacement: "]"}})
	seq, _, err := b.Apply(mid)
	if err != nil {
		t.Fatal(err)
	}

	composed, err := a.Compose(b)
	if err != nil {
		t.Fatal(err)
	}
	viaCompose, _, err := composed.Apply(doc)
	if err != nil {
		t.Fatal(err)
	}
	if viaCompose.String() != seq.String() {
		t.Fatalf("compose mismatch: got %q want %q", viaCompose.String(), seq.String())
	}
}

func TestChangePanicsOnOverlap(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overlapping ranges")
		}
	}()
	doc := rope.New("abcdef")
	Change(doc, []Change{{Start: 0, End: 3}, {Start: 2, End: 4}})
}
