package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"tome.dev/tome/internal/overlay"
	"tome.dev/tome/internal/rope"
)

// TestInsertThenUndoRestoresCursors exercises spec.md §8 end-to-end scenario
// 1: two views of the same document both start at cursor 0; an insert in
// the focused view maps the sibling's cursor forward through the edit;
// undo restores both views' original cursor via their captured
// ViewSnapshots.
func TestInsertThenUndoRestoresCursors(t *testing.T) {
	r := New()
	focused, err := r.Buffers.FocusedBuffer()
	if err != nil {
		t.Fatalf("FocusedBuffer: %v", err)
	}
	doc, err := r.Buffers.GetDocument(focused.DocID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	doc.Content = rope.New("a\nb\nc\n")

	sibling := r.Buffers.OpenScratch() // second view over the same scratch doc

	r.InsertText("X")

	if focused.Cursor != 1 {
		t.Fatalf("focused cursor after insert: got %d want 1", focused.Cursor)
	}
	if sibling.Cursor != 1 {
		t.Fatalf("sibling cursor after insert (mapped forward): got %d want 1", sibling.Cursor)
	}
	if doc.Content.String() != "Xa\nb\nc\n" {
		t.Fatalf("content after insert: got %q", doc.Content.String())
	}

	if !r.Undo.Undo(r, focused.DocID) {
		t.Fatalf("expected undo to succeed")
	}
	if doc.Content.String() != "a\nb\nc\n" {
		t.Fatalf("content after undo: got %q", doc.Content.String())
	}
	if focused.Cursor != 0 {
		t.Fatalf("focused cursor after undo: got %d want 0", focused.Cursor)
	}
	if sibling.Cursor != 0 {
		t.Fatalf("sibling cursor after undo: got %d want 0", sibling.Cursor)
	}
}

func TestDeleteCharIsUndoable(t *testing.T) {
	r := New()
	buf, _ := r.Buffers.FocusedBuffer()
	doc, _ := r.Buffers.GetDocument(buf.DocID)
	doc.Content = rope.New("abc")
	buf.Cursor = 0
	buf.Selection = nil

	registeredActions["edit.delete_char"](r, 0, 0)

	if doc.Content.String() != "bc" {
		t.Fatalf("after delete: got %q want %q", doc.Content.String(), "bc")
	}
	if !r.Undo.Undo(r, buf.DocID) {
		t.Fatalf("expected undo to succeed")
	}
	if doc.Content.String() != "abc" {
		t.Fatalf("after undo: got %q want %q", doc.Content.String(), "abc")
	}
}

func TestGuardReadonlyBlocksInsert(t *testing.T) {
	r := New()
	buf, _ := r.Buffers.FocusedBuffer()
	buf.Options.ReadOnly = true
	before := buf.Cursor

	r.InsertText("x")

	if buf.Cursor != before {
		t.Fatalf("expected readonly buffer to reject insert, cursor moved to %d", buf.Cursor)
	}
	stack := r.Toasts.Stack(overlay.RoleStatusLine)
	if len(stack) != 1 || stack[0].Key != "buffer_readonly" {
		t.Fatalf("expected a buffer_readonly toast, got %+v", stack)
	}
}

func TestNotifyNothingToUndoPushesToast(t *testing.T) {
	r := New()
	r.NotifyNothingToUndo()
	stack := r.Toasts.Stack(overlay.RoleStatusLine)
	if len(stack) != 1 || stack[0].Key != "nothing_to_undo" {
		t.Fatalf("expected a nothing_to_undo toast, got %+v", stack)
	}
}

func TestSaveFocusedDocumentWritesFileAndFiresHooks(t *testing.T) {
	r := New()
	path := filepath.Join(t.TempDir(), "hello.go")
	r.OpenFile(path, "package main\n")

	var hookPath, hookContent string
	r.SaveHooks = append(r.SaveHooks, func(p, c string) {
		hookPath, hookContent = p, c
	})

	if err := r.SaveFocusedDocument(); err != nil {
		t.Fatalf("SaveFocusedDocument: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "package main\n" {
		t.Fatalf("written content = %q", got)
	}
	if hookPath != path || hookContent != "package main\n" {
		t.Fatalf("save hook got path=%q content=%q", hookPath, hookContent)
	}

	buf, _ := r.Buffers.FocusedBuffer()
	doc, _ := r.Buffers.GetDocument(buf.DocID)
	if doc.Modified {
		t.Fatal("expected Modified cleared after save")
	}
}

func TestSaveFocusedDocumentIsNoopForScratch(t *testing.T) {
	r := New()
	if err := r.SaveFocusedDocument(); err != nil {
		t.Fatalf("SaveFocusedDocument on scratch buffer: %v", err)
	}
}

func TestExpandSnippetAtCursorExpandsKnownTrigger(t *testing.T) {
	r := New()
	buf, _ := r.Buffers.FocusedBuffer()
	doc, _ := r.Buffers.GetDocument(buf.DocID)
	doc.Content = rope.New("if")
	buf.Cursor = 2

	r.expandSnippetAtCursor()

	if doc.Content.String() != "if cond {\n\t\n}" {
		t.Fatalf("expanded content = %q", doc.Content.String())
	}
	if buf.Cursor != 3 {
		t.Fatalf("expected cursor at first tabstop (3), got %d", buf.Cursor)
	}
}

func TestExpandSnippetAtCursorIgnoresUnknownTrigger(t *testing.T) {
	r := New()
	buf, _ := r.Buffers.FocusedBuffer()
	doc, _ := r.Buffers.GetDocument(buf.DocID)
	doc.Content = rope.New("xyz")
	buf.Cursor = 3

	r.expandSnippetAtCursor()

	if doc.Content.String() != "xyz" {
		t.Fatalf("expected no change, got %q", doc.Content.String())
	}
}

func TestEditBackspaceDeletesPrecedingChar(t *testing.T) {
	r := New()
	buf, _ := r.Buffers.FocusedBuffer()
	doc, _ := r.Buffers.GetDocument(buf.DocID)
	doc.Content = rope.New("abc")
	buf.Cursor = 2

	registeredActions["edit.backspace"](r, 0, 0)

	if doc.Content.String() != "ac" {
		t.Fatalf("after backspace: got %q want %q", doc.Content.String(), "ac")
	}
}
