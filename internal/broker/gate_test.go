package broker

import "testing"

func TestFirstOpenerOwnsAndFollowersAreDropped(t *testing.T) {
	c := NewCore()
	sid := c.EnsureServer("gopls")
	a, b := NewSessionId(), NewSessionId()
	c.Attach(a, sid)
	c.Attach(b, sid)

	if d := c.GateTextSync(a, sid, "textDocument/didOpen", "file:///x.go", 0); d != Forward {
		t.Fatalf("expected first open to forward, got %v", d)
	}
	if d := c.GateTextSync(b, sid, "textDocument/didOpen", "file:///x.go", 0); d != DropSilently {
		t.Fatalf("expected second opener to be dropped, got %v", d)
	}
}

func TestNonOwnerDidChangeRejected(t *testing.T) {
	c := NewCore()
	sid := c.EnsureServer("gopls")
	a, b := NewSessionId(), NewSessionId()
	c.Attach(a, sid)
	c.Attach(b, sid)
	c.GateTextSync(a, sid, "textDocument/didOpen", "file:///x.go", 0)
	c.GateTextSync(b, sid, "textDocument/didOpen", "file:///x.go", 0)

	if d := c.GateTextSync(b, sid, "textDocument/didChange", "file:///x.go", 1); d != RejectNotOwner {
		t.Fatalf("expected non-owner didChange rejected, got %v", d)
	}
	if d := c.GateTextSync(a, sid, "textDocument/didChange", "file:///x.go", 1); d != Forward {
		t.Fatalf("expected owner didChange forwarded, got %v", d)
	}
}

func TestOwnershipTransfersWhenOwnerDetaches(t *testing.T) {
	c := NewCore()
	sid := c.EnsureServer("gopls")
	a, b := NewSessionId(), NewSessionId()
	c.Attach(a, sid)
	c.Attach(b, sid)
	c.GateTextSync(a, sid, "textDocument/didOpen", "file:///x.go", 0)
	c.GateTextSync(b, sid, "textDocument/didOpen", "file:///x.go", 0)

	c.Detach(a, sid)
	if d := c.GateTextSync(b, sid, "textDocument/didChange", "file:///x.go", 2); d != Forward {
		t.Fatalf("expected surviving session to take over ownership once owner detaches, got %v", d)
	}
}

func TestDidCloseRemovesDocWhenRefcountReachesZero(t *testing.T) {
	c := NewCore()
	sid := c.EnsureServer("gopls")
	a := NewSessionId()
	c.Attach(a, sid)
	c.GateTextSync(a, sid, "textDocument/didOpen", "file:///x.go", 0)

	d := c.GateTextSync(a, sid, "textDocument/didClose", "file:///x.go", 0)
	if d != Forward {
		t.Fatalf("expected last close to forward, got %v", d)
	}
	if d := c.GateTextSync(a, sid, "textDocument/didChange", "file:///x.go", 1); d != RejectNotOwner {
		t.Fatalf("expected didChange after full close to be rejected (no owner state), got %v", d)
	}
}

// TestDidOpenReElectsWhenElectedOwnerNeverOpened covers the case where the
// original owner detaches without closing, a second session is elected
// owner via didChange alone (so it has no open refcount entry), and a third
// session then sends didOpen: ownership must move to the third session
// rather than sticking on the never-opened second one.
func TestDidOpenReElectsWhenElectedOwnerNeverOpened(t *testing.T) {
	c := NewCore()
	sid := c.EnsureServer("gopls")
	a, b, cc := NewSessionId(), NewSessionId(), NewSessionId()
	c.Attach(a, sid)
	c.Attach(b, sid)
	c.Attach(cc, sid)

	c.GateTextSync(a, sid, "textDocument/didOpen", "file:///x.go", 0)
	c.Detach(a, sid)

	if d := c.GateTextSync(b, sid, "textDocument/didChange", "file:///x.go", 1); d != Forward {
		t.Fatalf("expected b to be elected owner via didChange, got %v", d)
	}

	if d := c.GateTextSync(cc, sid, "textDocument/didOpen", "file:///x.go", 2); d != DropSilently {
		t.Fatalf("expected didOpen to be dropped silently, got %v", d)
	}
	if d := c.GateTextSync(cc, sid, "textDocument/didChange", "file:///x.go", 3); d != Forward {
		t.Fatalf("expected c to be re-elected owner since b never opened, got %v", d)
	}
}
