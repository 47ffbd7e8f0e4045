// Package layout implements the split-tree LayoutManager and generational
// overlay LayerId model of spec.md §4.5, ported directly from
// _examples/original_source/crates/editor/src/layout/layers.rs.
package layout

import "fmt"

// ViewID identifies a leaf view within a Layout tree.
type ViewID uint64

// Direction of a split.
type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

// Layout is a binary tree: a single leaf view, or a split with an absolute
// separator position stored at construction time and kept stable across
// area changes.
type Layout struct {
	Single *ViewID
	Split  *SplitNode
}

// SplitNode is a binary split of a Layout.
type SplitNode struct {
	Dir      Direction
	First    *Layout
	Second   *Layout
	Position uint16 // absolute separator offset along Dir
}

// NewSingle builds a leaf layout.
func NewSingle(id ViewID) *Layout { return &Layout{Single: &id} }

// NewSplit builds a split layout.
func NewSplit(dir Direction, first, second *Layout, position uint16) *Layout {
	return &Layout{Split: &SplitNode{Dir: dir, First: first, Second: second, Position: position}}
}

// SplitPath is a boolean sequence identifying which branch to descend:
// false = First, true = Second.
type SplitPath []bool

// Rect is an absolute screen rectangle.
type Rect struct {
	X, Y, W, H uint32
}

// LayerError enumerates generational-handle validation failures.
type LayerError int

const (
	ErrInvalidIndex LayerError = iota
	ErrEmptyLayer
	ErrStaleLayer
)

func (e LayerError) Error() string {
	switch e {
	case ErrInvalidIndex:
		return "layer index out of range"
	case ErrEmptyLayer:
		return "layer slot is empty"
	case ErrStaleLayer:
		return "layer id is stale"
	default:
		return "unknown layer error"
	}
}

// LayerId is a (slot index, generation) pair identifying an overlay layer.
// Reads validate the generation before use, replacing what would naively be
// a weak reference with a deterministic, copyable, comparable id.
type LayerId struct {
	Index      uint16
	Generation uint16
}

type layerSlot struct {
	layout     *Layout
	generation uint16
}

// Manager owns layers[0] (the base layout) plus any number of overlay
// layers above it.
type Manager struct {
	slots    []layerSlot
	revision uint64
	docArea  Rect
}

// NewManager creates a Manager with the given base layout occupying slot 0.
func NewManager(base *Layout, docArea Rect) *Manager {
	return &Manager{
		slots:   []layerSlot{{layout: base, generation: 0}},
		docArea: docArea,
	}
}

// Revision returns the monotonically increasing layout revision counter.
func (m *Manager) Revision() uint64 { return m.revision }

// LayerCount returns the number of layer slots, up to the highest index ever
// set, including empty (never-set or cleared) ones.
func (m *Manager) LayerCount() int { return len(m.slots) }

// TopLayer returns the highest-index non-empty layer's index, or 0 (base) if
// no overlay layers are set.
func (m *Manager) TopLayer() uint16 {
	for i := len(m.slots) - 1; i > 0; i-- {
		if m.slots[i].layout != nil {
			return uint16(i)
		}
	}
	return 0
}

// validateLayer checks a LayerId against the current slot state.
func (m *Manager) validateLayer(id LayerId) error {
	if int(id.Index) >= len(m.slots) {
		return ErrInvalidIndex
	}
	slot := m.slots[id.Index]
	if slot.layout == nil {
		return ErrEmptyLayer
	}
	if slot.generation != id.Generation {
		return ErrStaleLayer
	}
	return nil
}

// IsValidLayer reports whether id currently validates.
func (m *Manager) IsValidLayer(id LayerId) bool { return m.validateLayer(id) == nil }

// Layer returns the Layout for a validated id.
func (m *Manager) Layer(id LayerId) (*Layout, error) {
	if err := m.validateLayer(id); err != nil {
		return nil, err
	}
	return m.slots[id.Index].layout, nil
}

// WithLayerMut runs fn against the layout at id (if valid), always bumping
// the revision afterward regardless of whether fn mutated anything, matching
// layers.rs's with_layer_mut (a conservative but correct invalidation
// strategy: callers of with_layer_mut intend to mutate).
func (m *Manager) WithLayerMut(id LayerId, fn func(*Layout)) error {
	if err := m.validateLayer(id); err != nil {
		return err
	}
	fn(m.slots[id.Index].layout)
	m.revision++
	return nil
}

// SetLayer installs a new layout at index (nil clears it), bumping that
// slot's generation and the overall revision, and returning the new LayerId.
// Setting index 0 (the base layer) is a programming error and panics,
// matching the Rust implementation's invariant that the base layer is never
// replaced through this path.
func (m *Manager) SetLayer(index uint16, layout *Layout) LayerId {
	if index == 0 {
		panic("layout: cannot SetLayer(0, ...); the base layer is immutable through SetLayer")
	}
	for int(index) >= len(m.slots) {
		m.slots = append(m.slots, layerSlot{})
	}
	slot := &m.slots[index]
	slot.layout = layout
	slot.generation++
	m.revision++
	return LayerId{Index: index, Generation: slot.generation}
}

// LayerOfView finds which layer (if any) currently shows the given view.
func (m *Manager) LayerOfView(view ViewID) (uint16, bool) {
	for i := len(m.slots) - 1; i >= 0; i-- {
		if m.slots[i].layout == nil {
			continue
		}
		if layoutHasView(m.slots[i].layout, view) {
			return uint16(i), true
		}
	}
	return 0, false
}

func layoutHasView(l *Layout, view ViewID) bool {
	if l == nil {
		return false
	}
	if l.Single != nil {
		return *l.Single == view
	}
	if l.Split != nil {
		return layoutHasView(l.Split.First, view) || layoutHasView(l.Split.Second, view)
	}
	return false
}

// LayerArea returns the area available to a layer. This is currently a
// simplification preserved from the original source: every layer (base and
// overlays alike) is handed the full document area; overlay controllers
// resolve their own sub-rects from it via OverlayUiSpec (component I).
func (m *Manager) LayerArea(index uint16) Rect { return m.docArea }

// LayerSlotHasLayout reports whether a slot currently has a non-nil layout.
func (m *Manager) LayerSlotHasLayout(index uint16) bool {
	if int(index) >= len(m.slots) {
		return false
	}
	return m.slots[index].layout != nil
}

// LayerSlotGeneration returns a slot's current generation, or 0 if the slot
// index is out of bounds.
func (m *Manager) LayerSlotGeneration(index uint16) uint16 {
	if int(index) >= len(m.slots) {
		return 0
	}
	return m.slots[index].generation
}

// OverlayLayout returns nil for the base layer (index 0) and the layer's
// layout otherwise (without generation validation — callers holding a
// LayerId should prefer Layer()).
func (m *Manager) OverlayLayout(index uint16) *Layout {
	if index == 0 {
		return nil
	}
	if int(index) >= len(m.slots) {
		return nil
	}
	return m.slots[index].layout
}

// SetDocArea updates the resolved document area (e.g. on terminal resize).
func (m *Manager) SetDocArea(r Rect) {
	m.docArea = r
	m.revision++
}

// Resize updates only the node at path's Position and bumps the revision.
func (m *Manager) Resize(id LayerId, path SplitPath, position uint16) error {
	return m.WithLayerMut(id, func(l *Layout) {
		node := l
		for _, second := range path {
			if node.Split == nil {
				return
			}
			if second {
				node = node.Split.Second
			} else {
				node = node.Split.First
			}
		}
		if node.Split != nil {
			node.Split.Position = position
		}
	})
}

// HitTest locates the split separator at screen point (x, y) within area,
// returning the direction, the separator's rect, and the SplitPath to it.
// Returns false if no separator is hit.
func HitTest(l *Layout, area Rect, x, y uint32) (Direction, Rect, SplitPath, bool) {
	return hitTest(l, area, x, y, nil)
}

func hitTest(l *Layout, area Rect, x, y uint32, path SplitPath) (Direction, Rect, SplitPath, bool) {
	if l == nil || l.Split == nil {
		return 0, Rect{}, nil, false
	}
	s := l.Split
	pos := uint32(s.Position)
	if s.Dir == Vertical {
		sepX := area.X + pos
		if x == sepX && y >= area.Y && y < area.Y+area.H {
			return Vertical, Rect{X: sepX, Y: area.Y, W: 1, H: area.H}, append(append(SplitPath{}, path...)), true
		}
		if x < sepX {
			return hitTest(s.First, Rect{X: area.X, Y: area.Y, W: pos, H: area.H}, x, y, append(path, false))
		}
		return hitTest(s.Second, Rect{X: sepX + 1, Y: area.Y, W: area.W - pos - 1, H: area.H}, x, y, append(path, true))
	}
	sepY := area.Y + pos
	if y == sepY && x >= area.X && x < area.X+area.W {
		return Horizontal, Rect{X: area.X, Y: sepY, W: area.W, H: 1}, append(append(SplitPath{}, path...)), true
	}
	if y < sepY {
		return hitTest(s.First, Rect{X: area.X, Y: area.Y, W: area.W, H: pos}, x, y, append(path, false))
	}
	return hitTest(s.Second, Rect{X: area.X, Y: sepY + 1, W: area.W, H: area.H - pos - 1}, x, y, append(path, true))
}

// String renders a Layout for debugging/tests.
func (l *Layout) String() string {
	if l == nil {
		return "<nil>"
	}
	if l.Single != nil {
		return fmt.Sprintf("View(%d)", *l.Single)
	}
	return fmt.Sprintf("Split(%v, %s, %s, %d)", l.Split.Dir, l.Split.First, l.Split.Second, l.Split.Position)
}
