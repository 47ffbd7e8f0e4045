// Package undo implements the UndoManager/UndoHost ownership-inversion
// pattern, grounded directly on
// _examples/original_source/crates/editor/src/impls/undo_host.rs. Rather
// than holding a mutable reference to the whole editor over the apply path,
// the editor hands a borrowed UndoHost implementation to WithEdit so the
// engine can update sibling selections and mark documents for LSP resync
// without aliasing editor state — the Go analog of the Rust borrow-split.
package undo

import (
	"sort"
	"sync"

	"tome.dev/tome/internal/buffer"
	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/transaction"
)

// Policy selects how an edit's history entry is recorded, per spec.md §3.
type Policy int

const (
	// Record starts a new history group.
	Record Policy = iota
	// MergeWithCurrentGroup extends the last group's inverse by composition,
	// keeping the original group's view snapshots. Used for Insert-mode
	// coalescing between the first character typed and the next mode
	// change.
	MergeWithCurrentGroup
	// IgnoreAndRecord replaces the pre-image of the current group instead of
	// composing with it.
	IgnoreAndRecord
	// Skip records no history entry at all.
	Skip
)

// EditOrigin records who caused an edit, surfaced in notifications/telemetry.
type EditOrigin string

const (
	OriginUser   EditOrigin = "user"
	OriginLSP    EditOrigin = "lsp"
	OriginPlugin EditOrigin = "plugin"
	OriginScript EditOrigin = "script"
)

// maxGroupDepth is the maximum number of undo groups retained per document;
// the oldest is trimmed once exceeded, per spec.md §4.2.
const maxGroupDepth = 100

// EditorUndoGroup is a unit of undoable work spanning one or more documents.
type EditorUndoGroup struct {
	// DocPreInverse maps each touched document to the ChangeSet that
	// reverses this group's edits on that document.
	DocPreInverse map[buffer.DocumentId]*transaction.ChangeSet
	// ViewSnapshots captures cursor/selection/scroll for every buffer of the
	// affected documents, taken before the group's first edit.
	ViewSnapshots map[buffer.BufferId]buffer.ViewSnapshot
	Origin        EditOrigin
}

// UndoHost is the narrow capability surface the undo manager drives during
// WithEdit, mirroring EditorUndoHost in the original source.
type UndoHost interface {
	GuardReadonly(bufferID buffer.BufferId) bool
	DocIDForBuffer(bufferID buffer.BufferId) buffer.DocumentId
	RopeForDocument(docID buffer.DocumentId) *rope.Rope
	CollectViewSnapshots(docID buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot
	CaptureCurrentViewSnapshots(docIDs []buffer.DocumentId) map[buffer.BufferId]buffer.ViewSnapshot
	RestoreViewSnapshots(snapshots map[buffer.BufferId]buffer.ViewSnapshot)
	// ApplyInverseForDocument applies cs (an inverse changeset) to docID's
	// current content, bumps its version, and marks it for full LSP resync.
	// It returns the changeset that would reverse this application (i.e.
	// the original forward edit), for the redo stack.
	ApplyInverseForDocument(docID buffer.DocumentId, cs *transaction.ChangeSet) (*transaction.ChangeSet, bool)
	DocInsertUndoActive(bufferID buffer.BufferId) bool
	NotifyUndo()
	NotifyRedo()
	NotifyNothingToUndo()
	NotifyNothingToRedo()
}

// state is the per-document Idle/Recording state machine of spec.md §4.2.
type state int

const (
	stateIdle state = iota
	stateRecording
)

// Manager owns per-document undo/redo group stacks.
type Manager struct {
	mu sync.Mutex

	groups map[buffer.DocumentId][]*EditorUndoGroup
	redo   map[buffer.DocumentId][]*EditorUndoGroup
	states map[buffer.DocumentId]state
}

// NewManager creates an empty undo manager.
func NewManager() *Manager {
	return &Manager{
		groups: make(map[buffer.DocumentId][]*EditorUndoGroup),
		redo:   make(map[buffer.DocumentId][]*EditorUndoGroup),
		states: make(map[buffer.DocumentId]state),
	}
}

// WithEdit drives a single edit against bufferID through the UndoHost,
// following spec.md §4.2's with_edit contract:
//  1. If readonly, return false without running edit.
//  2. Capture a ViewSnapshot for every buffer of the target document.
//  3. Run edit (which applies tx to the document via the host's owner).
//  4. If edit returns true, push or merge a history group per policy;
//     otherwise roll back snapshots and do not mutate history.
func (m *Manager) WithEdit(host UndoHost, bufferID buffer.BufferId, policy Policy, origin EditOrigin, tx *transaction.Transaction, edit func() bool) bool {
	if !host.GuardReadonly(bufferID) {
		return false
	}
	docID := host.DocIDForBuffer(bufferID)
	preRope := host.RopeForDocument(docID)
	snapshots := host.CollectViewSnapshots(docID)

	applied := edit()
	if !applied {
		host.RestoreViewSnapshots(snapshots)
		return false
	}

	if policy == Skip {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inv := tx.Invert(preRope)
	switch policy {
	case Record:
		m.pushGroup(docID, &EditorUndoGroup{
			DocPreInverse: map[buffer.DocumentId]*transaction.ChangeSet{docID: inv.Changes},
			ViewSnapshots: snapshots,
			Origin:        origin,
		})
		m.states[docID] = stateRecording
	case MergeWithCurrentGroup:
		stack := m.groups[docID]
		canMerge := len(stack) > 0 && m.states[docID] == stateRecording && host.DocInsertUndoActive(bufferID)
		if canMerge {
			last := stack[len(stack)-1]
			composed, err := inv.Changes.Compose(last.DocPreInverse[docID])
			if err == nil {
				last.DocPreInverse[docID] = composed
			} else {
				last.DocPreInverse[docID] = inv.Changes
			}
			// Keep the original snapshots (first-edit-of-group semantics).
		} else {
			m.pushGroup(docID, &EditorUndoGroup{
				DocPreInverse: map[buffer.DocumentId]*transaction.ChangeSet{docID: inv.Changes},
				ViewSnapshots: snapshots,
				Origin:        origin,
			})
		}
		m.states[docID] = stateRecording
	case IgnoreAndRecord:
		stack := m.groups[docID]
		if len(stack) > 0 {
			stack[len(stack)-1].DocPreInverse[docID] = inv.Changes
		} else {
			m.pushGroup(docID, &EditorUndoGroup{
				DocPreInverse: map[buffer.DocumentId]*transaction.ChangeSet{docID: inv.Changes},
				ViewSnapshots: snapshots,
				Origin:        origin,
			})
		}
	}
	// Clear the redo stack: a new edit invalidates previously undone work.
	m.redo[docID] = nil
	return true
}

func (m *Manager) pushGroup(docID buffer.DocumentId, g *EditorUndoGroup) {
	stack := append(m.groups[docID], g)
	if len(stack) > maxGroupDepth {
		stack = stack[len(stack)-maxGroupDepth:]
	}
	m.groups[docID] = stack
}

// EndGroup transitions a document's state back to Idle, closing the window
// during which MergeWithCurrentGroup may still coalesce (e.g. on leaving
// Insert mode).
func (m *Manager) EndGroup(docID buffer.DocumentId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[docID] = stateIdle
}

// Undo reverts the most recent undo group touching docID. For each document
// in the group (in deterministic ascending-id order), it applies the stored
// inverse changeset, bumps the document version, marks it for full LSP
// resync, and restores every live buffer's ViewSnapshot. Buffers no longer
// present are silently skipped by RestoreViewSnapshots.
func (m *Manager) Undo(host UndoHost, docID buffer.DocumentId) bool {
	m.mu.Lock()
	stack := m.groups[docID]
	if len(stack) == 0 {
		m.mu.Unlock()
		host.NotifyNothingToUndo()
		return false
	}
	group := stack[len(stack)-1]
	m.groups[docID] = stack[:len(stack)-1]
	m.mu.Unlock()

	forward := make(map[buffer.DocumentId]*transaction.ChangeSet, len(group.DocPreInverse))
	ok := true
	for _, id := range docGroupKeys(group) {
		fwd, applied := host.ApplyInverseForDocument(id, group.DocPreInverse[id])
		if !applied {
			ok = false
			continue
		}
		forward[id] = fwd
	}
	if !ok {
		return false
	}

	m.mu.Lock()
	m.redo[docID] = append(m.redo[docID], &EditorUndoGroup{
		DocPreInverse: forward,
		ViewSnapshots: group.ViewSnapshots,
		Origin:        group.Origin,
	})
	m.mu.Unlock()

	host.RestoreViewSnapshots(group.ViewSnapshots)
	host.NotifyUndo()
	return true
}

// Redo re-applies the most recently undone group for docID.
func (m *Manager) Redo(host UndoHost, docID buffer.DocumentId) bool {
	m.mu.Lock()
	redoStack := m.redo[docID]
	if len(redoStack) == 0 {
		m.mu.Unlock()
		host.NotifyNothingToRedo()
		return false
	}
	group := redoStack[len(redoStack)-1]
	m.redo[docID] = redoStack[:len(redoStack)-1]
	m.mu.Unlock()

	inverse := make(map[buffer.DocumentId]*transaction.ChangeSet, len(group.DocPreInverse))
	ok := true
	for _, id := range docGroupKeys(group) {
		inv, applied := host.ApplyInverseForDocument(id, group.DocPreInverse[id])
		if !applied {
			ok = false
			continue
		}
		inverse[id] = inv
	}
	if !ok {
		return false
	}

	m.mu.Lock()
	m.pushGroup(docID, &EditorUndoGroup{
		DocPreInverse: inverse,
		ViewSnapshots: group.ViewSnapshots,
		Origin:        group.Origin,
	})
	m.mu.Unlock()

	host.RestoreViewSnapshots(group.ViewSnapshots)
	host.NotifyRedo()
	return true
}

func docGroupKeys(g *EditorUndoGroup) []buffer.DocumentId {
	out := make([]buffer.DocumentId, 0, len(g.DocPreInverse))
	for id := range g.DocPreInverse {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GroupDepth reports how many undo groups are retained for docID (capped at
// maxGroupDepth).
func (m *Manager) GroupDepth(docID buffer.DocumentId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups[docID])
}
