package layout

import "testing"

func TestLayerIdStalenessAfterSetLayer(t *testing.T) {
	base := NewSingle(1)
	m := NewManager(base, Rect{W: 80, H: 24})
	overlay := NewSingle(2)
	id := m.SetLayer(1, overlay)

	if !m.IsValidLayer(id) {
		t.Fatal("expected freshly set layer to be valid")
	}

	m.SetLayer(1, NewSingle(3))
	if err := m.validateLayer(id); err != ErrStaleLayer {
		t.Fatalf("expected ErrStaleLayer for old generation, got %v", err)
	}
}

func TestSetLayerZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic setting base layer via SetLayer(0, ...)")
		}
	}()
	m := NewManager(NewSingle(1), Rect{})
	m.SetLayer(0, NewSingle(2))
}

func TestInvalidIndexAndEmptyLayer(t *testing.T) {
	m := NewManager(NewSingle(1), Rect{})
	if err := m.validateLayer(LayerId{Index: 5}); err != ErrInvalidIndex {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	id := m.SetLayer(2, NewSingle(9))
	m.SetLayer(2, nil)
	if err := m.validateLayer(LayerId{Index: id.Index, Generation: id.Generation + 1}); err != ErrEmptyLayer {
		t.Fatalf("expected ErrEmptyLayer, got %v", err)
	}
}

func TestHitTestVerticalSplit(t *testing.T) {
	l := NewSplit(Vertical, NewSingle(1), NewSingle(2), 40)
	dir, rect, path, ok := HitTest(l, Rect{X: 0, Y: 0, W: 80, H: 24}, 40, 5)
	if !ok {
		t.Fatal("expected a hit on the separator column")
	}
	if dir != Vertical {
		t.Fatalf("expected vertical direction, got %v", dir)
	}
	if rect.X != 40 {
		t.Fatalf("expected separator rect at x=40, got %d", rect.X)
	}
	if len(path) != 0 {
		t.Fatalf("expected empty path at top-level separator, got %v", path)
	}
}
