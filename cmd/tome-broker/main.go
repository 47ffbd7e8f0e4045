// Command tome-broker is the LSP broker daemon: it owns every running
// language-server process for a project root and multiplexes editor
// sessions onto them, gating textDocument/did* notifications so only the
// current owning session's edits reach the server (spec.md §4.8/§4.9).
// Grounded on _examples/sacenox-symb/cmd/symb/main.go's flag/config/logging
// bootstrap, retargeted from the teacher's chat-session CLI to a
// long-lived daemon that accepts connections over internal/ipc.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/jsonrpc2"

	"tome.dev/tome/internal/broker"
	"tome.dev/tome/internal/config"
	"tome.dev/tome/internal/ipc"
	"tome.dev/tome/internal/logging"
	"tome.dev/tome/internal/lspclient"
	"tome.dev/tome/internal/store"
)

func main() {
	socketFlag := flag.String("socket", "", "unix socket path (overrides config/env)")
	configFlag := flag.String("config", "", "path to config.toml")
	flag.Parse()

	closer, err := logging.Setup("tome-broker", os.Getenv("TOME_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to set up logging: %v\n", err)
	} else {
		defer closer.Close()
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	socketPath := cfg.Broker.SocketPathOrDefault()
	if *socketFlag != "" {
		socketPath = *socketFlag
	}

	dataDir, err := config.EnsureDataDir()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure data dir")
	}
	st, err := store.Open(filepath.Join(dataDir, "tome.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	d := newDaemon(cfg, st)

	ln, err := ipc.Listen(socketPath)
	if err != nil {
		log.Fatal().Err(err).Str("socket", socketPath).Msg("failed to listen")
	}
	defer ln.Close()

	log.Info().Str("socket", socketPath).Msg("tome-broker listening")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		log.Info().Msg("tome-broker shutting down")
		d.lsp.StopAll(context.Background())
		ln.Close()
	}()

	if err := ln.Serve(ctx, d.newHandler); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("broker accept loop exited")
	}
}

// daemon is the process-wide state a connection's handler closes over:
// one broker.Core and one lspclient.Manager shared across every attached
// editor session, per spec's "multiplexes one language-server process
// across many editor sessions".
type daemon struct {
	cfg   *config.Config
	store *store.Store
	core  *broker.Core
	lsp   *lspclient.Manager
}

func newDaemon(cfg *config.Config, st *store.Store) *daemon {
	return &daemon{
		cfg:   cfg,
		store: st,
		core:  broker.NewCore(),
		lsp:   lspclient.NewManager(),
	}
}

// newHandler builds a fresh jsonrpc2.Handler for one accepted connection,
// scoped to a single freshly minted SessionId, plus an onClose callback that
// closes out the session's audit log row once the connection disconnects,
// per ipc.Listener.Serve's contract.
func (d *daemon) newHandler() (jsonrpc2.Handler, func()) {
	session := broker.NewSessionId()
	d.store.RecordSessionStart(session.String())
	docCount := 0

	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		switch req.Method {
		case ipc.MethodAttach:
			return d.handleAttach(session, req)
		case ipc.MethodDetach:
			return d.handleDetach(session, req)
		case "textDocument/didOpen":
			docCount++
			return nil, d.handleDidOpen(ctx, session, req)
		case "textDocument/didChange":
			return nil, d.handleDidChange(ctx, session, req)
		case "textDocument/didClose":
			return nil, d.handleDidClose(session, req)
		default:
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method: " + req.Method}
		}
	})

	onClose := func() {
		d.store.RecordSessionEnd(session.String(), docCount)
	}
	return handler, onClose
}

func (d *daemon) handleAttach(session broker.SessionId, req *jsonrpc2.Request) (any, error) {
	var params ipc.AttachParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	serverID := d.core.EnsureServer(params.ServerName)
	d.core.Attach(session, serverID)
	return ipc.AttachResult{ServerID: uint64(serverID)}, nil
}

func (d *daemon) handleDetach(session broker.SessionId, req *jsonrpc2.Request) (any, error) {
	var params ipc.DetachParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	d.core.Detach(session, broker.ServerId(params.ServerID))
	return nil, nil
}

type textDocItem struct {
	URI     string `json:"uri"`
	Version uint32 `json:"version"`
	Text    string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocItem `json:"textDocument"`
	ServerID     uint64      `json:"serverId"`
}

type didChangeParams struct {
	TextDocument   textDocItem `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
	ServerID uint64 `json:"serverId"`
}

type didCloseParams struct {
	TextDocument textDocItem `json:"textDocument"`
	ServerID     uint64      `json:"serverId"`
}

func (d *daemon) handleDidOpen(ctx context.Context, session broker.SessionId, req *jsonrpc2.Request) error {
	var params didOpenParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	serverID := broker.ServerId(params.ServerID)
	decision := d.core.GateTextSync(session, serverID, req.Method, params.TextDocument.URI, params.TextDocument.Version)
	if decision != broker.Forward {
		log.Debug().Str("decision", decision.String()).Str("uri", params.TextDocument.URI).Msg("didOpen gated")
		return nil
	}
	d.core.RecordDocVersion(serverID, params.TextDocument.URI, params.TextDocument.Version)
	absPath := uriToPath(params.TextDocument.URI)
	d.lsp.TouchFile(ctx, absPath)
	return nil
}

func (d *daemon) handleDidChange(ctx context.Context, session broker.SessionId, req *jsonrpc2.Request) error {
	var params didChangeParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	serverID := broker.ServerId(params.ServerID)
	decision := d.core.GateTextSync(session, serverID, req.Method, params.TextDocument.URI, params.TextDocument.Version)
	if decision != broker.Forward {
		log.Debug().Str("decision", decision.String()).Str("uri", params.TextDocument.URI).Msg("didChange gated")
		return nil
	}
	d.core.RecordDocVersion(serverID, params.TextDocument.URI, params.TextDocument.Version)
	if len(params.ContentChanges) == 0 {
		return nil
	}
	absPath := uriToPath(params.TextDocument.URI)
	for _, c := range d.lsp.ActiveClientsFor(ctx, absPath) {
		if err := c.NotifyChangeText(ctx, absPath, params.ContentChanges[len(params.ContentChanges)-1].Text); err != nil {
			log.Warn().Err(err).Str("uri", params.TextDocument.URI).Msg("NotifyChangeText failed")
		}
	}
	return nil
}

func (d *daemon) handleDidClose(session broker.SessionId, req *jsonrpc2.Request) error {
	var params didCloseParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return err
	}
	serverID := broker.ServerId(params.ServerID)
	d.core.GateTextSync(session, serverID, req.Method, params.TextDocument.URI, 0)
	return nil
}

func uriToPath(uri string) string {
	const prefix = "file://"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		return uri[len(prefix):]
	}
	return uri
}
