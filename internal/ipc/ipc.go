// Package ipc carries the wire protocol between an editor process
// (cmd/tome) and the broker daemon (cmd/tome-broker) described in spec.md
// §6's IPC protocol section, over a Unix domain socket using
// sourcegraph/jsonrpc2 framing — the same JSON-RPC 2.0 shape the teacher's
// powernap dependency already speaks to language servers, reused here for
// the editor-to-broker leg instead of hand-rolling a second wire format.
package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// Broker-facing method names. LSP method names (textDocument/didOpen, etc.)
// pass through unchanged as jsonrpc2 notifications; these are broker-only
// additions layered on top.
const (
	MethodAttach      = "tome/attach"
	MethodDetach      = "tome/detach"
	MethodGateResult  = "tome/gateResult"
	MethodDiagnostics = "textDocument/publishDiagnostics"
)

// AttachParams is sent once per (session, server) pairing when an editor
// session first needs a language server for a project.
type AttachParams struct {
	SessionID  string `json:"sessionId"`
	ServerName string `json:"serverName"`
	RootPath   string `json:"rootPath"`
}

// AttachResult returns the broker-assigned server handle.
type AttachResult struct {
	ServerID uint64 `json:"serverId"`
}

// DetachParams releases a session's attachment to a server.
type DetachParams struct {
	SessionID string `json:"sessionId"`
	ServerID  uint64 `json:"serverId"`
}

// Dial connects to the broker daemon's Unix socket at path and returns a
// ready jsonrpc2 connection using handler to service broker-initiated
// notifications (diagnostics, gate results).
func Dial(ctx context.Context, socketPath string, handler jsonrpc2.Handler) (*jsonrpc2.Conn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	return jsonrpc2.NewConn(ctx, stream, handler), nil
}

// Listener wraps a Unix socket listener the broker daemon accepts editor
// connections on.
type Listener struct {
	ln net.Listener
}

// Listen creates (replacing any stale socket file left by a prior crash)
// and listens on a Unix socket at path.
func Listen(path string) (*Listener, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Close removes the socket and stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections in a loop, wiring each to a fresh jsonrpc2
// connection served by newHandler()'s handler, until ctx is cancelled.
// newHandler also returns an onClose callback, invoked once the connection's
// DisconnectNotify fires, so the caller can tear down per-session state (the
// broker daemon uses this to close out its session audit log entry).
func (l *Listener) Serve(ctx context.Context, newHandler func() (jsonrpc2.Handler, func())) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
		h, onClose := newHandler()
		rpcConn := jsonrpc2.NewConn(ctx, stream, h)
		if onClose != nil {
			go func() {
				<-rpcConn.DisconnectNotify()
				onClose()
			}()
		}
	}
}

// MarshalNotOwner encodes the rejection payload for a RejectNotOwner
// decision from the broker's Core.GateTextSync ({"uri", "reason":
// "not_owner"}). cmd/tome-broker does not send it: gated notifications are
// only logged there.
func MarshalNotOwner(uri string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"uri": uri, "reason": "not_owner"})
	return b
}
