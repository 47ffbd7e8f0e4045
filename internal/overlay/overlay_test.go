package overlay

import (
	"strings"
	"testing"
)

func TestTopCenterShiftsToFit(t *testing.T) {
	p := TopCenter(80, 0, 0, 0.05, 10)
	r := p.Resolve(Context{ScreenW: 100, ScreenH: 20})
	if r.W != 80 {
		t.Fatalf("expected width 80, got %d", r.W)
	}
	if r.X != 10 {
		t.Fatalf("expected centered x=10, got %d", r.X)
	}
	if r.Y+r.H > 20 {
		t.Fatalf("rect overflows screen height: y=%d h=%d", r.Y, r.H)
	}
}

func TestBelowAnchorCropsToScreen(t *testing.T) {
	p := BelowAnchor(RoleStatusLine, 0, 10)
	ctx := Context{ScreenW: 80, ScreenH: 24, AnchorRects: map[Role]Rect{
		RoleStatusLine: {X: 0, Y: 20, W: 80, H: 1},
	}}
	r := p.Resolve(ctx)
	if r.Y != 21 {
		t.Fatalf("expected anchored y=21, got %d", r.Y)
	}
	if r.H != 3 {
		t.Fatalf("expected height cropped to 3 (24-21), got %d", r.H)
	}
}

func TestDriverViewRendersControllerTitle(t *testing.T) {
	ctrl := NewPaletteController([]Command{{Name: "Open File", Desc: "fuzzy find"}})
	d, _ := NewDriver(ctrl, Colors{Fg: "#ffffff", Bg: "#000000", Border: "#888888"})

	view := d.View(Context{ScreenW: 80, ScreenH: 24})
	if !strings.Contains(view, "Commands") {
		t.Fatalf("expected rendered view to contain the controller's UiSpec.Title %q, got:\n%s", "Commands", view)
	}
}

func TestPaletteControllerFiltersByFuzzySubsequence(t *testing.T) {
	p := NewPaletteController([]Command{
		{Name: "Open File", Desc: "fuzzy find", Run: nil},
	})
	items := p.filter("of")
	if len(items) != 1 {
		t.Fatalf("expected 1 match for subsequence 'of', got %d", len(items))
	}
	if items := p.filter("zzz"); len(items) != 0 {
		t.Fatalf("expected no match for unrelated query, got %d", len(items))
	}
}
