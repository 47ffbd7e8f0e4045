package pluginabi

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// PermissionStore persists granted fs/chat permissions across restarts.
// internal/store keeps a plugin-permission-grants table (HasGrant and
// RecordGrant) but does not implement this interface.
type PermissionStore interface {
	IsGranted(plugin string, access FsAccess, path string) bool
	Grant(plugin string, access FsAccess, path string)
}

// pluginEntry is one loaded plugin's ABI handles plus its credential
// source for TomeHostV2.Chat, if it uses one.
type pluginEntry struct {
	name  string
	guest GuestTable
	cred  CredentialSource
}

// Manager owns every loaded plugin's guest table and dispatches host
// calls and guest event polling, serialized with the editor's UI tick per
// spec.md §5's "editor runtime is owned by the UI thread" rule — Manager
// itself takes no internal lock around dispatch for that reason; it is
// only ever driven from the runtime's tick loop (component K).
type Manager struct {
	mu      sync.Mutex
	plugins map[string]*pluginEntry
	perms   PermissionStore
	host    TomeHostV2
}

// NewManager builds a Manager. host supplies the notify/panel/fs/chat
// callbacks every loaded plugin shares; perms persists granted
// permissions.
func NewManager(host TomeHostV2, perms PermissionStore) *Manager {
	return &Manager{plugins: map[string]*pluginEntry{}, perms: perms, host: host}
}

// Load registers a plugin's guest table under name. cred may be nil if the
// plugin never calls TomeHostV2.Chat.
func (m *Manager) Load(name string, guest GuestTable, cred CredentialSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cred != nil {
		cred = NewCachingSource(cred)
	}
	m.plugins[name] = &pluginEntry{name: name, guest: guest, cred: cred}
	log.Info().Str("plugin", name).Msg("pluginabi: loaded")
}

// Unload drops a plugin's guest table. The plugin's own cleanup (freeing
// any outstanding owned strings) is its responsibility before unload.
func (m *Manager) Unload(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.plugins, name)
}

// PollAll polls every loaded plugin's guest table once, the UI-tick-driven
// analogue of spec.md §4.11's guest "poll_event" callback, and dispatches
// each non-EventNone result.
func (m *Manager) PollAll(ctx *PluginContext) {
	m.mu.Lock()
	entries := make([]*pluginEntry, 0, len(m.plugins))
	for _, e := range m.plugins {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		if e.guest.PollEvent == nil {
			continue
		}
		guard := EnterPluginContext(ctx)
		ev := e.guest.PollEvent()
		guard.Release()
		m.dispatch(e, ev)
	}
}

func (m *Manager) dispatch(e *pluginEntry, ev GuestEvent) {
	switch ev.Kind {
	case EventNone:
		return
	case EventPanelSubmit:
		// Delivered back to the plugin via its own OnPanelSubmit in a real
		// ABI; here the host already knows the input, nothing further to
		// route.
	case EventPermissionRequest:
		granted := m.perms != nil && m.perms.IsGranted(e.name, ev.Permission.Access, ev.Permission.Path)
		if !granted {
			log.Warn().Str("plugin", e.name).Str("path", ev.Permission.Path).
				Str("reason", ev.Permission.Reason).Msg("pluginabi: permission request pending user decision")
		}
		if e.guest.FreePermissionRequest != nil {
			e.guest.FreePermissionRequest(ev.Permission)
		}
	}
}

// Grant records a user's approval of a plugin's permission request.
func (m *Manager) Grant(plugin string, access FsAccess, path string) {
	if m.perms != nil {
		m.perms.Grant(plugin, access, path)
	}
}

// Chat performs a host-mediated outbound call on behalf of plugin. If the
// plugin has a registered CredentialSource, a token is refreshed from it
// first; the token is not attached to req, which reaches the host's Chat
// callback unchanged. Classified CredentialError failures are returned unwrapped so the
// caller can decide whether to re-prompt (ErrKindInvalidToken /
// ErrKindTokenExchange) or just retry (ErrKindNetwork).
func (m *Manager) Chat(ctx context.Context, plugin string, req ChatRequest) (ChatResponse, error) {
	m.mu.Lock()
	e, ok := m.plugins[plugin]
	m.mu.Unlock()
	if !ok {
		return ChatResponse{}, fmt.Errorf("pluginabi: unknown plugin %q", plugin)
	}
	if e.cred != nil {
		if _, err := e.cred.Refresh(ctx); err != nil {
			return ChatResponse{}, err
		}
	}
	if m.host.Chat == nil {
		return ChatResponse{}, fmt.Errorf("pluginabi: host has no Chat callback configured")
	}
	return m.host.Chat(req)
}
