package selection

import "testing"

func TestPointIsOneCellMinimum(t *testing.T) {
	r := Point(5)
	if r.To()-r.From() != 1 {
		t.Fatalf("expected 1-cell-minimum, got [%d,%d)", r.From(), r.To())
	}
}

func TestDirection(t *testing.T) {
	if NewRange(1, 5).Direction() != Forward {
		t.Fatal("expected forward")
	}
	if NewRange(5, 1).Direction() != Backward {
		t.Fatal("expected backward")
	}
}

func TestNewMultiRejectsOverlap(t *testing.T) {
	_, err := NewMulti([]Range{NewRange(0, 3), NewRange(2, 5)}, 0)
	if err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestNewMultiSortsAndTracksPrimary(t *testing.T) {
	sel, err := NewMulti([]Range{NewRange(10, 12), NewRange(0, 2)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Ranges()[0].From() != 0 {
		t.Fatalf("expected sorted ascending, got %+v", sel.Ranges())
	}
	if sel.Primary().From() != 10 {
		t.Fatalf("primary tracking broken: %+v", sel.Primary())
	}
}
