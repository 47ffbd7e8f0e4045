package buffer

import (
	"fmt"
	"sync"

	"tome.dev/tome/internal/rope"
	"tome.dev/tome/internal/selection"
	"tome.dev/tome/internal/transaction"
)

// LocalOptions holds per-view editing options (tab width, line numbers, ...).
type LocalOptions struct {
	TabWidth        int
	ExpandTabs      bool
	ShowLineNumbers bool
	ReadOnly        bool
}

// DefaultLocalOptions matches tui/editor/editor.go's defaults (tabWidth=4).
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{TabWidth: 4, ExpandTabs: true, ShowLineNumbers: true}
}

// Buffer is a per-window presentation of a Document: cursor, selection,
// scroll position, and local options.
type Buffer struct {
	ID    BufferId
	DocID DocumentId

	Cursor    rope.CharIdx
	Selection *selection.Selection
	ScrollRow int

	Options LocalOptions

	gutterWidth int
}

// NewBuffer creates a Buffer positioned at the start of its document.
func NewBuffer(id BufferId, docID DocumentId) *Buffer {
	return &Buffer{
		ID:        id,
		DocID:     docID,
		Cursor:    0,
		Selection: selection.New(selection.Point(0)),
		Options:   DefaultLocalOptions(),
	}
}

// IsReadonly reports whether edits to this view are rejected.
func (b *Buffer) IsReadonly() bool { return b.Options.ReadOnly }

// SnapshotView captures the buffer's cursor/selection/scroll for undo.
func (b *Buffer) SnapshotView(mode string) ViewSnapshot {
	return ViewSnapshot{Cursor: b.Cursor, Selection: b.Selection.Clone(), ScrollRow: b.ScrollRow, Mode: mode}
}

// RestoreView restores a previously captured ViewSnapshot.
func (b *Buffer) RestoreView(snap ViewSnapshot) {
	b.Cursor = snap.Cursor
	b.Selection = snap.Selection.Clone()
	b.ScrollRow = snap.ScrollRow
}

// MapSelectionThrough maps this buffer's selection (and cursor) through a
// transaction applied to a sibling buffer of the same document, grounded on
// EditorUndoHost.sync_sibling_selections in the original source.
func (b *Buffer) MapSelectionThrough(tx *transaction.Transaction) {
	mapped := tx.MapSelection(b.Selection)
	b.Selection = mapped
	b.Cursor = mapped.Primary().Head
}

// EnsureValidSelection clamps cursor/selection into the document's current
// bounds (used when no ViewSnapshot applies, e.g. after a foreign-document
// undo that this buffer was not itself part of).
func (b *Buffer) EnsureValidSelection(docLen rope.CharLen) {
	n := rope.CharIdx(docLen)
	clamp := func(p rope.CharIdx) rope.CharIdx {
		if p < 0 {
			return 0
		}
		if p > n {
			return n
		}
		return p
	}
	b.Cursor = clamp(b.Cursor)
	ranges := b.Selection.Ranges()
	newRanges := make([]selection.Range, len(ranges))
	for i, r := range ranges {
		newRanges[i] = selection.Range{Anchor: clamp(r.Anchor), Head: clamp(r.Head)}
	}
	if sel, err := selection.NewMulti(newRanges, b.Selection.PrimaryIndex()); err == nil {
		b.Selection = sel
	}
}

// BufferManager owns the set of open Documents and Buffers (views).
type BufferManager struct {
	mu sync.RWMutex

	docs       map[DocumentId]*Document
	buffers    map[BufferId]*Buffer
	nextDocID  DocumentId
	nextBufID  BufferId
	focusedBuf BufferId
}

// NewBufferManager creates an empty manager. The scratch document
// (DocumentIdScratch) is created eagerly, matching DocumentId::SCRATCH's
// reserved-id contract.
func NewBufferManager() *BufferManager {
	m := &BufferManager{
		docs:      make(map[DocumentId]*Document),
		buffers:   make(map[BufferId]*Buffer),
		nextDocID: DocumentIdScratch + 1,
		nextBufID: 1,
	}
	scratch := NewDocument(DocumentIdScratch, "", "")
	m.docs[DocumentIdScratch] = scratch
	return m
}

// OpenDocument creates a new Document (or reuses one matching path) and a
// Buffer viewing it, returning the new Buffer.
func (m *BufferManager) OpenDocument(path, content string) *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if path != "" && d.Path == path {
			return m.newBufferLocked(d.ID)
		}
	}
	id := m.nextDocID
	m.nextDocID++
	m.docs[id] = NewDocument(id, path, content)
	return m.newBufferLocked(id)
}

// OpenScratch opens a new view over the scratch document.
func (m *BufferManager) OpenScratch() *Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newBufferLocked(DocumentIdScratch)
}

func (m *BufferManager) newBufferLocked(docID DocumentId) *Buffer {
	id := m.nextBufID
	m.nextBufID++
	b := NewBuffer(id, docID)
	m.buffers[id] = b
	if m.focusedBuf == 0 {
		m.focusedBuf = id
	}
	return b
}

// GetDocument returns the document for an id, or an error if none exists.
func (m *BufferManager) GetDocument(id DocumentId) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("buffer: no document %d", id)
	}
	return d, nil
}

// GetBuffer returns a buffer by id.
func (m *BufferManager) GetBuffer(id BufferId) (*Buffer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buffers[id]
	if !ok {
		return nil, fmt.Errorf("buffer: no buffer %d", id)
	}
	return b, nil
}

// FocusedBuffer returns the currently focused buffer.
func (m *BufferManager) FocusedBuffer() (*Buffer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffers[m.focusedBuf], nil
}

// SetFocus changes the focused buffer.
func (m *BufferManager) SetFocus(id BufferId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buffers[id]; ok {
		m.focusedBuf = id
	}
}

// BufferIDs returns all buffer ids in arbitrary order.
func (m *BufferManager) BufferIDs() []BufferId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BufferId, 0, len(m.buffers))
	for id := range m.buffers {
		out = append(out, id)
	}
	return out
}

// BuffersForDocument returns every buffer currently viewing docID.
func (m *BufferManager) BuffersForDocument(docID DocumentId) []*Buffer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Buffer
	for _, b := range m.buffers {
		if b.DocID == docID {
			out = append(out, b)
		}
	}
	return out
}

// ApplyToBuffer applies a transaction to the document underlying bufID, then
// fans the resulting selection mapping out to every sibling buffer of the
// same document (this buffer takes tx.Selection when set), matching
// EditorUndoHost.apply_transaction_inner + sync_sibling_selections.
func (m *BufferManager) ApplyToBuffer(bufID BufferId, tx *transaction.Transaction) (bool, error) {
	buf, err := m.GetBuffer(bufID)
	if err != nil {
		return false, err
	}
	if buf.IsReadonly() {
		return false, nil
	}
	doc, err := m.GetDocument(buf.DocID)
	if err != nil {
		return false, err
	}
	if err := doc.Apply(tx); err != nil {
		return false, err
	}
	if tx.Selection != nil {
		buf.Selection = tx.Selection
		buf.Cursor = tx.Selection.Primary().Head
	} else {
		buf.MapSelectionThrough(tx)
	}
	for _, sib := range m.BuffersForDocument(buf.DocID) {
		if sib.ID == bufID {
			continue
		}
		sib.MapSelectionThrough(tx)
	}
	return true, nil
}
