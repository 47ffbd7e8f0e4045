package undo

import (
	"testing"

	"tome.dev/tome/internal/buffer"
	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
	"tome.dev/tome/internal/transaction"
)

// fakeHost adapts plain buffer.Document and buffer.Buffer maps to the
// UndoHost surface for testing WithEdit/Undo/Redo in isolation.
type fakeHost struct {
	docs          map[buffer.DocumentId]*buffer.Document
	bufs          map[buffer.BufferId]*buffer.Buffer
	notifications []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{docs: map[buffer.DocumentId]*buffer.Document{}, bufs: map[buffer.BufferId]*buffer.Buffer{}}
}

func (h *fakeHost) GuardReadonly(bufferID buffer.BufferId) bool { return true }
func (h *fakeHost) DocIDForBuffer(bufferID buffer.BufferId) buffer.DocumentId {
	return h.bufs[bufferID].DocID
}
func (h *fakeHost) RopeForDocument(docID buffer.DocumentId) *rope.Rope {
	r, _ := h.docs[docID].Snapshot()
	return r
}
func (h *fakeHost) CollectViewSnapshots(docID buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot {
	out := map[buffer.BufferId]buffer.ViewSnapshot{}
	for id, b := range h.bufs {
		if b.DocID == docID {
			out[id] = b.SnapshotView("normal")
		}
	}
	return out
}
func (h *fakeHost) CaptureCurrentViewSnapshots(docIDs []buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot {
	return nil
}
func (h *fakeHost) RestoreViewSnapshots(snapshots map[buffer.BufferId]buffer.ViewSnapshot) {
	for id, snap := range snapshots {
		if b, ok := h.bufs[id]; ok {
			b.RestoreView(snap)
		}
	}
}
func (h *fakeHost) ApplyInverseForDocument(docID buffer.DocumentId, cs *transaction.ChangeSet) (*transaction.ChangeSet, bool) {
	fwd, err := h.docs[docID].ApplyChangeSet(cs)
	return fwd, err == nil
}
func (h *fakeHost) DocInsertUndoActive(bufferID buffer.BufferId) bool { return false }
func (h *fakeHost) NotifyUndo()                                      { h.notifications = append(h.notifications, "undo") }
func (h *fakeHost) NotifyRedo()                                      { h.notifications = append(h.notifications, "redo") }
func (h *fakeHost) NotifyNothingToUndo()                              { h.notifications = append(h.notifications, "nothing-undo") }
func (h *fakeHost) NotifyNothingToRedo()                              { h.notifications = append(h.notifications, "nothing-redo") }

func TestWithEditThenUndoRedo(t *testing.T) {
	host := newFakeHost()
	doc := buffer.NewDocument(1, "", "a\nb\nc\n")
	host.docs[1] = doc
	buf := buffer.NewBuffer(1, 1)
	buf.Cursor = 2
	buf.Selection = selection.New(selection.Point(2))
	host.bufs[1] = buf

	mgr := NewManager()
	rp, _ := doc.Snapshot()
	tx := transaction.InsertAt(rp, buf.Selection, "X")

	applied := mgr.WithEdit(host, 1, Record, OriginUser, tx, func() bool {
		_, err := doc.ApplyChangeSet(tx.Changes)
		if err != nil {
			return false
		}
		buf.Selection = tx.Selection
		buf.Cursor = tx.Selection.Primary().Head
		return true
	})
	if !applied {
		t.Fatal("expected WithEdit to apply")
	}
	if doc.Content.String() != "a\nXb\nc\n" {
		t.Fatalf("got %q", doc.Content.String())
	}

	if !mgr.Undo(host, 1) {
		t.Fatal("expected undo to succeed")
	}
	if doc.Content.String() != "a\nb\nc\n" {
		t.Fatalf("undo did not restore: %q", doc.Content.String())
	}
	if buf.Cursor != 2 {
		t.Fatalf("undo did not restore cursor: got %d want 2", buf.Cursor)
	}

	if !mgr.Redo(host, 1) {
		t.Fatal("expected redo to succeed")
	}
	if doc.Content.String() != "a\nXb\nc\n" {
		t.Fatalf("redo did not reapply: %q", doc.Content.String())
	}
}

func TestUndoWithNothingToUndoNotifies(t *testing.T) {
	host := newFakeHost()
	mgr := NewManager()
	if mgr.Undo(host, 42) {
		t.Fatal("expected false for empty stack")
	}
	if len(host.notifications) != 1 || host.notifications[0] != "nothing-undo" {
		t.Fatalf("expected nothing-to-undo notification, got %v", host.notifications)
	}
}
