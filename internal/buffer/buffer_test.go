package buffer

import (
	"testing"

	"tome.dev/tome/internal/selection"
	"tome.dev/tome/internal/transaction"
)

func TestInsertMapsSiblingCursorsThenInverseRestoresContent(t *testing.T) {
	m := NewBufferManager()
	view1 := m.OpenDocument("", "a\nb\nc\n")
	doc, _ := m.GetDocument(view1.DocID)
	view2 := NewBuffer(99, view1.DocID)
	m.buffers[view2.ID] = view2

	view1.Cursor = 2
	view1.Selection = selection.New(selection.Point(2))
	view2.Cursor = 2
	view2.Selection = selection.New(selection.Point(2))

	rp, _ := doc.Snapshot()
	tx := transaction.InsertAt(rp, view1.Selection, "X")

	ok, err := m.ApplyToBuffer(view1.ID, tx)
	if err != nil || !ok {
		t.Fatalf("apply failed: ok=%v err=%v", ok, err)
	}
	if view1.Cursor != 3 {
		t.Fatalf("view1 cursor after insert: got %d want 3", view1.Cursor)
	}
	if view2.Cursor != 3 {
		t.Fatalf("view2 cursor after insert (sibling fan-out): got %d want 3", view2.Cursor)
	}

	inv := tx.Invert(rp)
	if _, err := doc.ApplyChangeSet(inv.Changes); err != nil {
		t.Fatalf("undo via ApplyChangeSet: %v", err)
	}
	if doc.Content.String() != "a\nb\nc\n" {
		t.Fatalf("undo did not restore content: %q", doc.Content.String())
	}
}

func TestReadonlyBufferRejectsApply(t *testing.T) {
	m := NewBufferManager()
	view := m.OpenDocument("", "hello")
	view.Options.ReadOnly = true
	doc, _ := m.GetDocument(view.DocID)
	rp, _ := doc.Snapshot()
	tx := transaction.InsertAt(rp, view.Selection, "X")
	ok, err := m.ApplyToBuffer(view.ID, tx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected apply to be rejected for readonly buffer")
	}
}
