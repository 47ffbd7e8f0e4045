package pluginabi

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) Refresh(ctx context.Context) (Token, error) {
	f.calls++
	if f.err != nil {
		return Token{}, f.err
	}
	return Token{Value: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestCachingSourceReusesUnexpiredToken(t *testing.T) {
	fake := &fakeSource{}
	src := NewCachingSource(fake)

	for i := 0; i < 3; i++ {
		if _, err := src.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if fake.calls != 1 {
		t.Fatalf("expected underlying source to be called once, got %d", fake.calls)
	}
}

func TestCachingSourceWrapsPlainErrorAsNetwork(t *testing.T) {
	fake := &fakeSource{err: errors.New("dial tcp: refused")}
	src := NewCachingSource(fake)

	_, err := src.Refresh(context.Background())
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected a *CredentialError, got %T: %v", err, err)
	}
	if credErr.Kind != ErrKindNetwork {
		t.Fatalf("expected ErrKindNetwork, got %v", credErr.Kind)
	}
}

type fakePerms struct {
	granted map[string]bool
}

func (p *fakePerms) IsGranted(plugin string, access FsAccess, path string) bool {
	return p.granted[plugin+"|"+path]
}

func (p *fakePerms) Grant(plugin string, access FsAccess, path string) {
	if p.granted == nil {
		p.granted = map[string]bool{}
	}
	p.granted[plugin+"|"+path] = true
}

func TestManagerChatFailsFastWithoutHostCallback(t *testing.T) {
	m := NewManager(TomeHostV2{}, &fakePerms{})
	m.Load("demo", GuestTable{}, nil)

	_, err := m.Chat(context.Background(), "demo", ChatRequest{Endpoint: "/v1/search"})
	if err == nil {
		t.Fatal("expected an error when no Chat callback is configured")
	}
}

func TestManagerChatPropagatesCredentialError(t *testing.T) {
	wantErr := &CredentialError{Kind: ErrKindInvalidToken, Err: errors.New("token revoked")}
	m := NewManager(TomeHostV2{
		Chat: func(req ChatRequest) (ChatResponse, error) { return ChatResponse{}, nil },
	}, &fakePerms{})
	m.Load("demo", GuestTable{}, &fakeSource{err: wantErr})

	_, err := m.Chat(context.Background(), "demo", ChatRequest{})
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected *CredentialError, got %T: %v", err, err)
	}
	if credErr.Kind != ErrKindInvalidToken {
		t.Fatalf("expected ErrKindInvalidToken, got %v", credErr.Kind)
	}
}

func TestPollAllDispatchesPermissionRequestAndFreesIt(t *testing.T) {
	freed := false
	m := NewManager(TomeHostV2{}, &fakePerms{})
	m.Load("demo", GuestTable{
		PollEvent: func() GuestEvent {
			return GuestEvent{Kind: EventPermissionRequest, Permission: PermissionRequest{
				PluginName: "demo", Access: FsRead, Path: "/tmp/x",
			}}
		},
		FreePermissionRequest: func(p PermissionRequest) { freed = true },
	}, nil)

	m.PollAll(&PluginContext{})
	if !freed {
		t.Fatal("expected FreePermissionRequest to be called exactly once")
	}
}

func TestTomeStrRoundTripsThroughBorrowedView(t *testing.T) {
	s := "hello plugin"
	ts := NewTomeStr(s)
	if got := ts.String(); got != s {
		t.Fatalf("expected %q, got %q", s, got)
	}
}

func TestPluginContextGuardRestoresPreviousContext(t *testing.T) {
	outer := &PluginContext{}
	g1 := EnterPluginContext(outer)
	inner := &PluginContext{}
	g2 := EnterPluginContext(inner)
	if CurrentContext() != inner {
		t.Fatal("expected inner context to be active")
	}
	g2.Release()
	if CurrentContext() != outer {
		t.Fatal("expected outer context restored after inner guard released")
	}
	g1.Release()
	if CurrentContext() != nil {
		t.Fatal("expected nil context after outermost guard released")
	}
}
