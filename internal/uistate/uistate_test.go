package uistate

import (
	"testing"
	"time"

	"tome.dev/tome/internal/overlay"
)

func TestToastStackExpiresAfterDismissDuration(t *testing.T) {
	s := NewToastStack()
	start := time.Unix(0, 0)
	s.Push(KeySaveFailed, "save failed", LevelError, overlay.RoleStatusLine, start, 2*time.Second)

	s.Tick(start.Add(1 * time.Second))
	if len(s.Stack(overlay.RoleStatusLine)) != 1 {
		t.Fatal("expected toast to still be live before its dismiss duration elapses")
	}

	s.Tick(start.Add(3 * time.Second))
	if len(s.Stack(overlay.RoleStatusLine)) != 0 {
		t.Fatal("expected toast to be gone after its dismiss duration elapses")
	}
}

func TestToastStackNegativeDismissIsSticky(t *testing.T) {
	s := NewToastStack()
	start := time.Unix(0, 0)
	s.Push(KeyLSPNotOwner, "read-only", LevelWarn, overlay.RoleEditor, start, -1)

	s.Tick(start.Add(24 * time.Hour))
	if len(s.Stack(overlay.RoleEditor)) != 1 {
		t.Fatal("expected a sticky toast to survive any amount of tick time")
	}
}

func TestDismissKeyRemovesOnlyMatchingToasts(t *testing.T) {
	s := NewToastStack()
	now := time.Unix(0, 0)
	s.Push(KeySaveFailed, "a", LevelError, overlay.RoleStatusLine, now, defaultDismiss)
	s.Push(KeyPatternNotFound, "b", LevelInfo, overlay.RoleStatusLine, now, defaultDismiss)

	s.DismissKey(overlay.RoleStatusLine, KeySaveFailed)
	stack := s.Stack(overlay.RoleStatusLine)
	if len(stack) != 1 || stack[0].Key != KeyPatternNotFound {
		t.Fatalf("expected only KeyPatternNotFound to remain, got %+v", stack)
	}
}

func TestCompletionStateFiltersAndNavigates(t *testing.T) {
	c := NewCompletionState()
	c.Open([]CompletionItem{
		{Label: "fmt.Println"},
		{Label: "fmt.Printf"},
		{Label: "os.Open"},
	})
	c.SetQuery("fmtP")
	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 matches for query 'fmtP', got %d: %+v", len(items), items)
	}

	c.Next()
	sel, ok := c.Selected()
	if !ok {
		t.Fatal("expected a selected item after Next")
	}
	if sel.Label != items[1].Label {
		t.Fatalf("expected selection to advance to %q, got %q", items[1].Label, sel.Label)
	}

	c.Next()
	sel, _ = c.Selected()
	if sel.Label != items[0].Label {
		t.Fatal("expected Next to wrap back to the first item")
	}
}

func TestCompletionStateCloseClearsAll(t *testing.T) {
	c := NewCompletionState()
	c.Open([]CompletionItem{{Label: "x"}})
	c.Close()
	if c.IsOpen() {
		t.Fatal("expected menu to report closed")
	}
	if _, ok := c.Selected(); ok {
		t.Fatal("expected no selection once closed")
	}
}

func TestInfoPopupShowAndHide(t *testing.T) {
	var p InfoPopup
	p.Show("signature", "func(a, b int) int", overlay.RoleEditor)
	if !p.Visible || p.Title != "signature" {
		t.Fatal("expected popup to be visible with the given content")
	}
	p.Hide()
	if p.Visible {
		t.Fatal("expected popup hidden after Hide")
	}
}
