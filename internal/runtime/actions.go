// This file wires the Runtime into the undo.UndoHost contract and
// registers the core editing/motion actions the default keymap
// (internal/input/defaults.go) names, exercising the
// K -> UndoManager(E) -> Buffer.apply(Transaction(B)) data flow described
// in spec.md §2, and calling internal/syntax's NoteEditIncremental before
// the next tick's debounce gate can fire (invariant 4 of §4.3).
package runtime

import (
	"os"
	"time"

	"tome.dev/tome/internal/buffer"
	"tome.dev/tome/internal/input"
	"tome.dev/tome/internal/overlay"
	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
	"tome.dev/tome/internal/snippet"
	"tome.dev/tome/internal/syntax"
	"tome.dev/tome/internal/transaction"
	"tome.dev/tome/internal/uistate"
	"tome.dev/tome/internal/undo"

	tea "charm.land/bubbletea/v2"

	"github.com/rs/zerolog/log"
)

// --- undo.UndoHost --------------------------------------------------------

// GuardReadonly reports whether bufferID may be edited; called first in
// WithEdit so the BufferReadonly notification fires before any snapshot
// capture, per §4.2/§4.3's supplemented "guard_readonly as an explicit
// UndoHost method" note.
func (r *Runtime) GuardReadonly(bufferID buffer.BufferId) bool {
	buf, err := r.Buffers.GetBuffer(bufferID)
	if err != nil {
		return false
	}
	if buf.IsReadonly() {
		r.NotifyReadonly()
		return false
	}
	return true
}

func (r *Runtime) DocIDForBuffer(bufferID buffer.BufferId) buffer.DocumentId {
	buf, err := r.Buffers.GetBuffer(bufferID)
	if err != nil {
		return buffer.DocumentIdScratch
	}
	return buf.DocID
}

func (r *Runtime) RopeForDocument(docID buffer.DocumentId) *rope.Rope {
	doc, err := r.Buffers.GetDocument(docID)
	if err != nil {
		return rope.New("")
	}
	return doc.Content
}

func (r *Runtime) CollectViewSnapshots(docID buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot {
	out := map[buffer.BufferId]buffer.ViewSnapshot{}
	for _, b := range r.Buffers.BuffersForDocument(docID) {
		out[b.ID] = b.SnapshotView(r.Keys.Mode().String())
	}
	return out
}

func (r *Runtime) CaptureCurrentViewSnapshots(docIDs []buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot {
	out := map[buffer.BufferId]buffer.ViewSnapshot{}
	for _, id := range docIDs {
		for k, v := range r.CollectViewSnapshots(id) {
			out[k] = v
		}
	}
	return out
}

func (r *Runtime) RestoreViewSnapshots(snapshots map[buffer.BufferId]buffer.ViewSnapshot) {
	for id, snap := range snapshots {
		if b, err := r.Buffers.GetBuffer(id); err == nil {
			b.RestoreView(snap)
		}
	}
}

// ApplyInverseForDocument applies cs to docID's current content via
// Document.ApplyChangeSet, notifies the syntax manager of the incremental
// edit (undo/redo always triggers a full resync per the supplemented
// mark_buffer_dirty_for_full_sync behavior, so the edit is reported as
// spanning the whole prior document), and returns the forward changeset
// for the opposite stack.
func (r *Runtime) ApplyInverseForDocument(docID buffer.DocumentId, cs *transaction.ChangeSet) (*transaction.ChangeSet, bool) {
	doc, err := r.Buffers.GetDocument(docID)
	if err != nil {
		return nil, false
	}
	preLen := int(doc.Len())
	fwd, err := doc.ApplyChangeSet(cs)
	if err != nil {
		return nil, false
	}
	r.Syntax.NoteEditIncremental(syntax.DocID(docID), syntax.Edit{
		StartByte:  0,
		OldEndByte: uint32(preLen),
		NewEndByte: uint32(int(doc.Len())),
	})
	return fwd, true
}

func (r *Runtime) DocInsertUndoActive(bufferID buffer.BufferId) bool {
	doc, err := r.Buffers.GetDocument(r.DocIDForBuffer(bufferID))
	if err != nil {
		return false
	}
	return doc.InsertUndoActive
}

// NotifyUndo and NotifyRedo fire on every successful undo/redo; a
// status-line toast on the happy path would just add noise, so these stay
// no-ops while the failure and guard paths below push toasts.
func (r *Runtime) NotifyUndo() {}
func (r *Runtime) NotifyRedo() {}
func (r *Runtime) NotifyNothingToUndo() {
	r.Toasts.Push(uistate.KeyNothingToUndo, "nothing to undo", uistate.LevelInfo, overlay.RoleStatusLine, time.Now(), 0)
}
func (r *Runtime) NotifyNothingToRedo() {
	r.Toasts.Push(uistate.KeyNothingToRedo, "nothing to redo", uistate.LevelInfo, overlay.RoleStatusLine, time.Now(), 0)
}

// NotifyReadonly surfaces keys.BUFFER_READONLY per §7's error taxonomy as a
// status-line toast, the component P surface the pre-wired stub used to
// lack a handle to.
func (r *Runtime) NotifyReadonly() {
	log.Warn().Msg("keys.buffer_readonly")
	r.Toasts.Push(uistate.KeyBufferReadonly, "buffer is read-only", uistate.LevelWarn, overlay.RoleStatusLine, time.Now(), 0)
}

// --- editing helpers -------------------------------------------------------

// editInsert performs a grouped insert-at-cursor edit through
// undo.Manager.WithEdit, the same shape every editing action in this file
// follows: build a Transaction over the current rope/selection, hand a
// closure that applies it to the focused buffer via BufferManager, then
// let WithEdit decide how (or whether) to record history.
func (r *Runtime) editInsert(buf *buffer.Buffer, text string, policy undo.Policy) bool {
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return false
	}
	tx := transaction.InsertAt(doc.Content, buf.Selection, text)
	preLen := int(doc.Len())
	return r.Undo.WithEdit(r, buf.ID, policy, undo.OriginUser, tx, func() bool {
		ok, err := r.Buffers.ApplyToBuffer(buf.ID, tx)
		if err != nil || !ok {
			return false
		}
		r.Syntax.NoteEditIncremental(syntax.DocID(buf.DocID), syntax.Edit{
			StartByte:  uint32(preLen),
			OldEndByte: uint32(preLen),
			NewEndByte: uint32(int(doc.Len())),
		})
		return true
	})
}

func (r *Runtime) editDeleteSelection(buf *buffer.Buffer) bool {
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return false
	}
	tx := transaction.DeleteAt(doc.Content, buf.Selection)
	preLen := int(doc.Len())
	return r.Undo.WithEdit(r, buf.ID, undo.Record, undo.OriginUser, tx, func() bool {
		ok, err := r.Buffers.ApplyToBuffer(buf.ID, tx)
		if err != nil || !ok {
			return false
		}
		r.Syntax.NoteEditIncremental(syntax.DocID(buf.DocID), syntax.Edit{
			StartByte:  0,
			OldEndByte: uint32(preLen),
			NewEndByte: uint32(int(doc.Len())),
		})
		return true
	})
}

// --- registered actions ------------------------------------------------

func init() {
	RegisterAction("app.quit", func(r *Runtime, count int, register rune) tea.Cmd {
		r.Quit()
		return tea.Quit
	})
	RegisterAction("mode.to_normal", func(r *Runtime, count int, register rune) tea.Cmd {
		if r.Keys.Mode() == input.ModeInsert {
			r.EndInsertGroup()
		}
		r.Keys.SetMode(input.ModeNormal)
		return nil
	})
	RegisterAction("mode.to_insert", func(r *Runtime, count int, register rune) tea.Cmd {
		if buf, err := r.Buffers.FocusedBuffer(); err == nil && buf != nil {
			doc, derr := r.Buffers.GetDocument(buf.DocID)
			if derr == nil {
				doc.InsertUndoActive = true
			}
		}
		r.Keys.SetMode(input.ModeInsert)
		return nil
	})
	RegisterAction("mode.to_window", func(r *Runtime, count int, register rune) tea.Cmd {
		r.Keys.SetMode(input.ModeWindow)
		return nil
	})

	RegisterAction("cursor.left", func(r *Runtime, count int, register rune) tea.Cmd {
		return r.moveCursor(-max1(count))
	})
	RegisterAction("cursor.right", func(r *Runtime, count int, register rune) tea.Cmd {
		return r.moveCursor(max1(count))
	})

	RegisterAction("edit.delete_char", func(r *Runtime, count int, register rune) tea.Cmd {
		buf, err := r.Buffers.FocusedBuffer()
		if err != nil || buf == nil {
			return nil
		}
		sel, err := selection.NewMulti([]selection.Range{selection.Point(buf.Cursor)}, 0)
		if err != nil {
			return nil
		}
		buf.Selection = sel
		r.editDeleteSelection(buf)
		return nil
	})

	RegisterAction("undo.undo", func(r *Runtime, count int, register rune) tea.Cmd {
		if buf, err := r.Buffers.FocusedBuffer(); err == nil && buf != nil {
			r.Undo.Undo(r, buf.DocID)
		}
		return nil
	})
	RegisterAction("undo.redo", func(r *Runtime, count int, register rune) tea.Cmd {
		if buf, err := r.Buffers.FocusedBuffer(); err == nil && buf != nil {
			r.Undo.Redo(r, buf.DocID)
		}
		return nil
	})
	RegisterAction("buffer.save", func(r *Runtime, count int, register rune) tea.Cmd {
		r.SaveFocusedDocument()
		return nil
	})

	RegisterAction("overlay.open_file_picker", func(r *Runtime, count int, register rune) tea.Cmd {
		root, err := os.Getwd()
		if err != nil {
			return nil
		}
		ctrl, err := overlay.NewFilePickerController(root, func(path string) tea.Cmd {
			content, _ := os.ReadFile(path)
			r.OpenFile(path, string(content))
			return nil
		})
		if err != nil {
			return nil
		}
		return func() tea.Msg { return OverlayOpenMsg{Controller: ctrl} }
	})

	RegisterAction("overlay.open_command_palette", func(r *Runtime, count int, register rune) tea.Cmd {
		if r.PaletteCommands == nil {
			return nil
		}
		ctrl := overlay.NewPaletteController(r.PaletteCommands())
		return func() tea.Msg { return OverlayOpenMsg{Controller: ctrl} }
	})

	RegisterAction("edit.expand_snippet", func(r *Runtime, count int, register rune) tea.Cmd {
		r.expandSnippetAtCursor()
		return nil
	})

	// edit.indent_or_complete is bound to tab in Insert mode: it expands a
	// recognized snippet trigger word if the cursor sits right after one,
	// and otherwise falls back to a literal tab character.
	RegisterAction("edit.indent_or_complete", func(r *Runtime, count int, register rune) tea.Cmd {
		if buf, err := r.Buffers.FocusedBuffer(); err == nil && buf != nil {
			doc, derr := r.Buffers.GetDocument(buf.DocID)
			if derr == nil {
				lineStart := doc.Content.LineStart(doc.Content.LineOf(buf.Cursor))
				trigger := trailingWord(doc.Content.Slice(lineStart, buf.Cursor))
				if _, ok := builtinSnippets[trigger]; ok {
					r.expandSnippetAtCursor()
					return nil
				}
			}
		}
		r.InsertText("\t")
		return nil
	})
	RegisterAction("edit.backspace", func(r *Runtime, count int, register rune) tea.Cmd {
		buf, err := r.Buffers.FocusedBuffer()
		if err != nil || buf == nil || buf.Cursor == 0 {
			return nil
		}
		sel, err := selection.NewMulti([]selection.Range{selection.Point(buf.Cursor - 1)}, 0)
		if err != nil {
			return nil
		}
		buf.Selection = sel
		r.editDeleteSelection(buf)
		return nil
	})
	RegisterAction("edit.newline", func(r *Runtime, count int, register rune) tea.Cmd {
		r.InsertText("\n")
		return nil
	})
}

// builtinSnippets is a small, language-agnostic trigger table; component R
// scripts or a future LSP-sourced snippet table would extend this, but
// neither exists today, so this is the one concrete source
// "edit.expand_snippet" draws from.
var builtinSnippets = map[string]string{
	"for":  "for ${1:i} := 0; $1 < ${2:n}; $1++ {\n\t$0\n}",
	"func": "func ${1:name}(${2:args}) {\n\t$0\n}",
	"if":   "if ${1:cond} {\n\t$0\n}",
}

// expandSnippetAtCursor reads the word immediately before the cursor as a
// trigger, and if builtinSnippets has an entry for it, parses and renders
// the snippet (component Q) and inserts the rendered text in place of the
// trigger, moving the cursor to the first tabstop's rendered position.
func (r *Runtime) expandSnippetAtCursor() {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return
	}
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return
	}
	lineStart := doc.Content.LineStart(doc.Content.LineOf(buf.Cursor))
	prefix := doc.Content.Slice(lineStart, buf.Cursor)
	trigger := trailingWord(prefix)
	if trigger == "" {
		return
	}
	body, ok := builtinSnippets[trigger]
	if !ok {
		return
	}
	mod, err := snippet.Parse(body)
	if err != nil {
		return
	}
	text, stops := mod.Render()

	triggerStart := buf.Cursor - rope.CharIdx(len([]rune(trigger)))
	sel, err := selection.NewMulti([]selection.Range{selection.NewRange(triggerStart, buf.Cursor-1)}, 0)
	if err != nil {
		return
	}
	buf.Selection = sel
	if !r.editInsert(buf, text, undo.Record) {
		return
	}
	if len(stops) > 0 {
		buf.Cursor = triggerStart + rope.CharIdx(stops[0].Start)
		buf.Selection = selection.New(selection.Point(buf.Cursor))
	}
}

// trailingWord returns the longest suffix of s made of letters, digits, or
// underscores — the trigger word immediately before the cursor.
func trailingWord(s string) string {
	runes := []rune(s)
	i := len(runes)
	for i > 0 {
		r := runes[i-1]
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			break
		}
		i--
	}
	return string(runes[i:])
}

// SaveFocusedDocument writes the focused document's content to its path (a
// no-op for the scratch buffer, which has no path) and, on success, runs
// every registered SaveHook with the final content — the buffer_saved hook
// point component O's plugins and component R's scripts observe.
func (r *Runtime) SaveFocusedDocument() error {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return err
	}
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return err
	}
	if doc.Path == "" {
		return nil
	}
	content := doc.Content.String()
	if err := os.WriteFile(doc.Path, []byte(content), 0644); err != nil {
		log.Warn().Err(err).Str("path", doc.Path).Msg("buffer.save failed")
		r.Toasts.Push(uistate.KeySaveFailed, "save failed: "+err.Error(), uistate.LevelError, overlay.RoleStatusLine, time.Now(), 0)
		return err
	}
	r.Toasts.DismissKey(overlay.RoleStatusLine, uistate.KeySaveFailed)
	doc.Modified = false
	for _, hook := range r.SaveHooks {
		hook(doc.Path, content)
	}
	return nil
}

// InsertText performs the Insert-mode literal-text path: every character
// typed in a single Insert-mode session merges into the current undo group
// per spec.md §3's "Grouped Insert mode uses MergeWithCurrentGroup between
// the first char and the next mode change" until ModeChange calls
// EndInsertGroup.
func (r *Runtime) InsertText(text string) {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return
	}
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return
	}
	policy := undo.Record
	if doc.InsertUndoActive {
		policy = undo.MergeWithCurrentGroup
	}
	r.editInsert(buf, text, policy)
}

// EndInsertGroup closes the current Insert-mode coalescing window, called
// on every transition out of Insert mode.
func (r *Runtime) EndInsertGroup() {
	if buf, err := r.Buffers.FocusedBuffer(); err == nil && buf != nil {
		r.Undo.EndGroup(buf.DocID)
		if doc, derr := r.Buffers.GetDocument(buf.DocID); derr == nil {
			doc.InsertUndoActive = false
		}
	}
}

func (r *Runtime) moveCursor(delta int) tea.Cmd {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return nil
	}
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return nil
	}
	next := int(buf.Cursor) + delta
	if next < 0 {
		next = 0
	}
	max := int(doc.Len())
	if next > max {
		next = max
	}
	buf.Cursor = rope.CharIdx(next)
	buf.Selection = selection.New(selection.Point(buf.Cursor))
	return nil
}

func max1(count int) int {
	if count < 1 {
		return 1
	}
	return count
}
