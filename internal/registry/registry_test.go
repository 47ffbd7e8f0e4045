package registry

import "testing"

func TestFireRunsSubscribedHandlers(t *testing.T) {
	r := New()
	var got HookEvent
	r.Subscribe(HookBufferSaved, func(event HookEvent, payload any) { got = event })
	r.Fire(HookBufferSaved, "path.go")
	if got != HookBufferSaved {
		t.Fatalf("expected handler to observe HookBufferSaved, got %v", got)
	}
}

func TestRegisterActionAddsToCatalog(t *testing.T) {
	r := New()
	r.RegisterAction(Action{Name: "buffer.save", Desc: "save the focused buffer"})
	if _, ok := r.Action("buffer.save"); !ok {
		t.Fatal("expected buffer.save to be registered")
	}
	if len(r.Actions()) != 1 {
		t.Fatalf("expected 1 action, got %d", len(r.Actions()))
	}
}
