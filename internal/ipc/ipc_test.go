package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		return
	}
	var params AttachParams
	_ = req.UnmarshalParams(&params)
	_ = conn.Reply(ctx, req.ID, AttachResult{ServerID: 1})
}

func TestDialAndAttachRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "tome-broker.sock")
	ln, err := Listen(sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ln.Serve(ctx, func() (jsonrpc2.Handler, func()) { return echoHandler{}, nil })

	time.Sleep(20 * time.Millisecond)

	conn, err := Dial(ctx, sock, echoHandler{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var res AttachResult
	err = conn.Call(ctx, MethodAttach, AttachParams{SessionID: "s1", ServerName: "gopls", RootPath: "/tmp"}, &res)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.ServerID != 1 {
		t.Fatalf("expected serverId 1, got %d", res.ServerID)
	}
}
