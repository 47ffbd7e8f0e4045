package runtime

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"tome.dev/tome/internal/input"
)

func TestWindowSizeResizesLayoutArea(t *testing.T) {
	r := New()
	r.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if r.screenW != 100 || r.screenH != 40 {
		t.Fatalf("expected screen dims recorded, got %d,%d", r.screenW, r.screenH)
	}
}

func TestDispatchCallsRegisteredAction(t *testing.T) {
	called := false
	RegisterAction("test.noop", func(r *Runtime, count int, register rune) tea.Cmd {
		called = true
		return nil
	})
	r := New()
	r.dispatch(input.Resolved{Action: "test.noop"})
	if !called {
		t.Fatal("expected registered action to run")
	}
}
