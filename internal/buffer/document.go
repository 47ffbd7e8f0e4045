// Package buffer implements the Document/Buffer(View) split of spec.md §3:
// a Document is the shared rope + version for a file (or scratch buffer),
// with edit history kept by internal/undo rather than here; a Buffer is a per-view presentation (cursor, selection, scroll,
// local options) of a Document. Multiple Buffers may share a Document;
// sibling buffers receive selection-mapping fan-out after every applied
// transaction, grounded on
// _examples/original_source/crates/editor/src/impls/undo_host.rs's
// sync_sibling_selections.
package buffer

import (
	"fmt"
	"path/filepath"
	"sync"

	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
	"tome.dev/tome/internal/transaction"
)

// DocumentId is a process-unique monotonic integer. DocumentIdScratch (0) is
// reserved for the scratch buffer.
type DocumentId uint64

// DocumentIdScratch is the reserved id for the scratch document.
const DocumentIdScratch DocumentId = 0

// BufferId identifies a view over a Document.
type BufferId uint64

// Document is the authoritative text for a file (or scratch). It holds no
// undo history of its own; internal/undo owns that.
type Document struct {
	mu sync.RWMutex

	ID       DocumentId
	Content  *rope.Rope
	Path     string // "" for scratch
	Modified bool
	Version  uint64

	// InsertUndoActive tracks whether consecutive inserts should be merged
	// into the current undo group (see internal/undo's MergeWithCurrentGroup
	// policy).
	InsertUndoActive bool

	// NeedsFullLSPSync is set by ApplyChangeSet (the undo/redo path), whose
	// changes the incremental LSP sync path does not represent. Apply leaves
	// it unchanged.
	NeedsFullLSPSync bool

	LanguageID string // "" if unknown; set by the syntax manager on detection
}

// NewDocument creates a Document with the given initial content.
func NewDocument(id DocumentId, path, content string) *Document {
	return &Document{
		ID:      id,
		Content: rope.New(content),
		Path:    path,
	}
}

// Apply applies a transaction to the document's rope, bumping Version. It
// does not touch any Buffer's cursor/selection (callers are responsible for
// that fan-out) and does not itself record undo history — component E's
// internal/undo.Manager owns grouping and history exclusively, reaching the
// document through ApplyChangeSet on undo/redo instead of through this
// method, so there is exactly one history mechanism rather than two.
func (d *Document) Apply(tx *transaction.Transaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tx.IsIdentity() {
		return nil
	}
	newRope, _, err := tx.Apply(d.Content)
	if err != nil {
		return fmt.Errorf("buffer: apply transaction to document %d: %w", d.ID, err)
	}
	d.Content = newRope
	d.Version++
	d.Modified = true
	return nil
}

// ApplyChangeSet applies an arbitrary ChangeSet to the document's rope
// (the path internal/undo.Manager uses for undo/redo), bumping Version and marking the
// document for a full LSP resync. It returns the ChangeSet that would
// reverse this application, for the caller's own redo/undo bookkeeping.
func (d *Document) ApplyChangeSet(cs *transaction.ChangeSet) (*transaction.ChangeSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pre := d.Content
	newRope, err := cs.Apply(pre)
	if err != nil {
		return nil, fmt.Errorf("buffer: apply changeset to document %d: %w", d.ID, err)
	}
	inverse := cs.Invert(pre)
	d.Content = newRope
	d.Version++
	d.Modified = true
	d.NeedsFullLSPSync = true
	return inverse, nil
}

// Len returns the document's rune length.
func (d *Document) Len() rope.CharLen {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Content.Len()
}

// Snapshot returns the current rope and version under the read lock.
func (d *Document) Snapshot() (*rope.Rope, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Content, d.Version
}

// DisplayName returns the base name of Path, or "[scratch]".
func (d *Document) DisplayName() string {
	if d.Path == "" {
		return "[scratch]"
	}
	return filepath.Base(d.Path)
}

// IncrementVersion bumps the version without an edit. The undo/redo path
// does not call it; ApplyChangeSet bumps the version itself.
func (d *Document) IncrementVersion() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Version++
}

// ViewSnapshot captures cursor/selection/mode/scroll, restored on undo/redo
// to put cursors back where the user expects, per spec.md §3.
type ViewSnapshot struct {
	Cursor    rope.CharIdx
	Selection *selection.Selection
	Mode      string
	ScrollRow int
}
