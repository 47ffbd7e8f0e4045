// Package lspclient wraps powernap LSP clients with diagnostics tracking
// and generational server handles, adapted from
// _examples/sacenox-symb/internal/lsp's client.go/manager.go. The teacher
// keys servers by name in a flat map with no handle type at all; this
// package adds a generational LanguageServerId (mirroring component H's
// LayerId) so callers can hold a server reference without risking a stale
// pointer: once a server is marked broken its id no longer resolves (a
// broken server is not respawned).
package lspclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	powernap "github.com/charmbracelet/x/powernap/pkg/lsp"
	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/rs/zerolog/log"
)

// Severity mirrors LSP DiagnosticSeverity.
const (
	SeverityError   = 1
	SeverityWarning = 2
)

// LanguageServerId is a (slot, generation) handle identifying a running
// language server, generalizing component H's LayerId pattern to the LSP
// broker's server table.
type LanguageServerId struct {
	Index      uint16
	Generation uint16
}

// Client wraps one powernap server connection plus diagnostics state.
type Client struct {
	inner    *powernap.Client
	ServerID string

	mu          sync.Mutex
	diags       map[string][]protocol.Diagnostic
	versions    map[string]int
	diagChanged chan struct{}
}

func newClient(serverID string, cfg powernap.ClientConfig) (*Client, error) {
	inner, err := powernap.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("lspclient: start %s: %w", serverID, err)
	}

	c := &Client{
		inner:       inner,
		ServerID:    serverID,
		diags:       make(map[string][]protocol.Diagnostic),
		versions:    make(map[string]int),
		diagChanged: make(chan struct{}, 1),
	}

	inner.RegisterNotificationHandler("textDocument/publishDiagnostics",
		func(_ context.Context, _ string, params json.RawMessage) {
			var p protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(params, &p); err != nil {
				log.Error().Err(err).Msg("lspclient: unmarshal diagnostics")
				return
			}
			c.mu.Lock()
			c.diags[string(p.URI)] = p.Diagnostics
			c.mu.Unlock()
			select {
			case c.diagChanged <- struct{}{}:
			default:
			}
		},
	)
	inner.RegisterHandler("window/workDoneProgress/create",
		func(_ context.Context, _ string, _ json.RawMessage) (any, error) { return nil, nil })
	inner.RegisterNotificationHandler("$/progress",
		func(_ context.Context, _ string, _ json.RawMessage) {})
	inner.RegisterNotificationHandler("window/logMessage",
		func(_ context.Context, _ string, _ json.RawMessage) {})
	inner.RegisterHandler("client/registerCapability",
		func(_ context.Context, _ string, _ json.RawMessage) (any, error) { return nil, nil })

	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	return c.inner.Initialize(ctx, false)
}

// OpenFile sends didOpen on first use, didChange thereafter, reading
// content fresh from disk each time (matching the teacher's approach:
// the editor keeps LSP content authoritative from the saved file, with
// in-memory buffer content synced separately via NotifyChange).
func (c *Client) OpenFile(ctx context.Context, absPath string) error {
	uri := string(protocol.URIFromPath(absPath))

	c.mu.Lock()
	_, open := c.versions[uri]
	c.mu.Unlock()
	if open {
		return c.NotifyChangeFromDisk(ctx, absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("lspclient: read %s: %w", absPath, err)
	}
	lang := powernap.DetectLanguage(absPath)

	c.mu.Lock()
	c.versions[uri] = 0
	c.mu.Unlock()
	return c.inner.NotifyDidOpenTextDocument(ctx, uri, string(lang), 0, string(data))
}

// NotifyChangeFromDisk pushes the file's current on-disk content as a
// whole-document didChange, bumping the tracked version.
func (c *Client) NotifyChangeFromDisk(ctx context.Context, absPath string) error {
	uri := string(protocol.URIFromPath(absPath))
	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("lspclient: read %s: %w", absPath, err)
	}
	return c.NotifyChangeText(ctx, absPath, string(data))
}

// NotifyChangeText pushes text as a whole-document didChange for absPath.
// Whole-document sync (rather than incremental ranges) is used deliberately:
// component B's ChangeSet already gives the editor a precise edit span, but
// translating every edit into an LSP incremental range adds a second
// position-mapping surface that must stay exactly in sync with the
// server's own count of `version`; a full resync on each debounced push
// (see component F/L's debounce) is simpler and cannot drift.
func (c *Client) NotifyChangeText(ctx context.Context, absPath, text string) error {
	uri := string(protocol.URIFromPath(absPath))
	c.mu.Lock()
	v := c.versions[uri] + 1
	c.versions[uri] = v
	c.mu.Unlock()

	change := protocol.TextDocumentContentChangeEvent{
		Value: protocol.TextDocumentContentChangeWholeDocument{Text: text},
	}
	return c.inner.NotifyDidChangeTextDocument(ctx, uri, v, []protocol.TextDocumentContentChangeEvent{change})
}

// WaitForDiagnostics blocks until a debounce window of quiet follows the
// last publishDiagnostics notification, or timeout/ctx elapses.
func (c *Client) WaitForDiagnostics(ctx context.Context, absPath string, timeout time.Duration) []protocol.Diagnostic {
	uri := string(protocol.URIFromPath(absPath))
	deadline := time.After(timeout)
	const debounce = 150 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-c.diagChanged:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
		case <-timerChan(timer):
			return c.snapshotDiags(uri)
		case <-deadline:
			return c.snapshotDiags(uri)
		case <-ctx.Done():
			return c.snapshotDiags(uri)
		}
	}
}

func (c *Client) snapshotDiags(uri string) []protocol.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diags[uri]
}

func (c *Client) drainDiagChan() {
	for {
		select {
		case <-c.diagChanged:
		default:
			return
		}
	}
}

// NotifyAndWait opens/resyncs absPath then waits for settled diagnostics.
func (c *Client) NotifyAndWait(ctx context.Context, absPath string, timeout time.Duration) ([]protocol.Diagnostic, error) {
	c.drainDiagChan()
	if err := c.OpenFile(ctx, absPath); err != nil {
		return nil, err
	}
	return c.WaitForDiagnostics(ctx, absPath, timeout), nil
}

func (c *Client) Close(ctx context.Context) error {
	if err := c.inner.Shutdown(ctx); err != nil {
		c.inner.Kill()
		return fmt.Errorf("lspclient: shutdown %s: %w", c.ServerID, err)
	}
	return c.inner.Exit()
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t != nil {
		return t.C
	}
	return nil
}

// DiagLineSeverities converts diagnostics to a 0-indexed line->severity map
// (lower severity number wins), for status-line/gutter display.
func DiagLineSeverities(diags []protocol.Diagnostic) map[int]int {
	if len(diags) == 0 {
		return nil
	}
	lines := make(map[int]int)
	for _, d := range diags {
		sev := int(d.Severity)
		if sev != SeverityError && sev != SeverityWarning {
			continue
		}
		line := int(d.Range.Start.Line)
		if existing, ok := lines[line]; !ok || sev < existing {
			lines[line] = sev
		}
	}
	return lines
}
