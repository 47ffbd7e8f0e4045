package lspclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	powernapconfig "github.com/charmbracelet/x/powernap/pkg/config"
	powernap "github.com/charmbracelet/x/powernap/pkg/lsp"
	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/rs/zerolog/log"
)

// skipAutoStart lists generic interpreters that should never be
// auto-launched as a language server, ported verbatim from the teacher.
var skipAutoStart = map[string]bool{
	"npx": true, "node": true, "python": true, "python3": true,
	"java": true, "ruby": true, "perl": true, "dotnet": true, "bun": true,
}

// DiagCallback is invoked when a file's diagnostics settle.
type DiagCallback func(absPath string, lines map[int]int)

type serverSlot struct {
	client     *Client
	generation uint16
	broken     bool
}

// Manager owns all running language servers, keyed by generational id
// rather than by bare name. A server marked broken is not restarted, and
// ids issued for it stop resolving, so stale references fail closed.
type Manager struct {
	cfgMgr *powernapconfig.Manager

	mu       sync.Mutex
	byName   map[string]uint16 // server config name -> slot index
	slots    []serverSlot
	callback DiagCallback
}

// NewManager builds a Manager with powernap's bundled server defaults.
func NewManager() *Manager {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	cm := powernapconfig.NewManager()
	_ = cm.LoadDefaults()
	return &Manager{cfgMgr: cm, byName: map[string]uint16{}}
}

func (m *Manager) SetCallback(cb DiagCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// IdFor returns the current LanguageServerId for a running server name, if
// any.
func (m *Manager) IdFor(name string) (LanguageServerId, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byName[name]
	if !ok {
		return LanguageServerId{}, false
	}
	return LanguageServerId{Index: idx, Generation: m.slots[idx].generation}, true
}

// Resolve validates id and returns its Client.
func (m *Manager) Resolve(id LanguageServerId) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(id.Index) >= len(m.slots) {
		return nil, false
	}
	slot := m.slots[id.Index]
	if slot.client == nil || slot.generation != id.Generation {
		return nil, false
	}
	return slot.client, true
}

// TouchFile ensures the right servers run for absPath and pushes didOpen.
func (m *Manager) TouchFile(ctx context.Context, absPath string) {
	for _, c := range m.ensureClients(ctx, absPath) {
		if err := c.OpenFile(ctx, absPath); err != nil {
			log.Error().Err(err).Str("server", c.ServerID).Msg("lspclient: touchFile")
		}
	}
}

// ActiveClientsFor returns every running client whose configuration
// matches absPath's file type, starting them first if needed — the
// broker daemon's forwarding path for textDocument/didChange, which must
// reach every server already attached to a file rather than just the
// server that opened it first.
func (m *Manager) ActiveClientsFor(ctx context.Context, absPath string) []*Client {
	return m.ensureClients(ctx, absPath)
}

// NotifyAndWait notifies every matching server and returns aggregated
// diagnostics, firing the callback once with the merged line map.
func (m *Manager) NotifyAndWait(ctx context.Context, absPath string, timeout time.Duration) []protocol.Diagnostic {
	clients := m.ensureClients(ctx, absPath)
	if len(clients) == 0 {
		return nil
	}
	var all []protocol.Diagnostic
	for _, c := range clients {
		diags, err := c.NotifyAndWait(ctx, absPath, timeout)
		if err != nil {
			log.Error().Err(err).Str("server", c.ServerID).Msg("lspclient: notifyAndWait")
			continue
		}
		all = append(all, diags...)
	}

	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(absPath, DiagLineSeverities(all))
	}
	return all
}

// StopAll gracefully shuts down every running server.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.slots))
	for _, s := range m.slots {
		if s.client != nil {
			clients = append(clients, s.client)
		}
	}
	m.mu.Unlock()
	for _, c := range clients {
		if err := c.Close(ctx); err != nil {
			log.Error().Err(err).Str("server", c.ServerID).Msg("lspclient: stopAll")
		}
	}
}

type serverToStart struct {
	name    string
	cfg     *powernapconfig.ServerConfig
	root    string
	cmdPath string
}

func (m *Manager) ensureClients(ctx context.Context, absPath string) []*Client {
	lang := string(powernap.DetectLanguage(absPath))
	if lang == "" {
		return nil
	}
	servers := m.cfgMgr.GetServers()

	m.mu.Lock()
	var result []*Client
	var pending []serverToStart
	for name, cfg := range servers {
		if !matchesFileType(cfg, lang) {
			continue
		}
		idx, exists := m.byName[name]
		if exists {
			slot := m.slots[idx]
			if slot.broken {
				continue
			}
			if slot.client != nil {
				result = append(result, slot.client)
				continue
			}
		}
		if skipAutoStart[cfg.Command] {
			m.markBrokenLocked(name)
			continue
		}
		cmdPath := lookPath(cfg.Command)
		if cmdPath == "" {
			m.markBrokenLocked(name)
			continue
		}
		root := findRoot(absPath, cfg.RootMarkers)
		if root == "" {
			root, _ = os.Getwd()
		}
		pending = append(pending, serverToStart{name: name, cfg: cfg, root: root, cmdPath: cmdPath})
	}
	m.mu.Unlock()

	for _, s := range pending {
		c, err := m.startClient(ctx, s.name, s.cfg, s.root, s.cmdPath)
		m.mu.Lock()
		if err != nil {
			log.Error().Err(err).Str("server", s.name).Msg("lspclient: start failed")
			m.markBrokenLocked(s.name)
		} else {
			m.installClientLocked(s.name, c)
			result = append(result, c)
		}
		m.mu.Unlock()
	}
	return result
}

// markBrokenLocked must be called with m.mu held.
func (m *Manager) markBrokenLocked(name string) {
	idx, ok := m.byName[name]
	if !ok {
		idx = uint16(len(m.slots))
		m.slots = append(m.slots, serverSlot{})
		m.byName[name] = idx
	}
	m.slots[idx].broken = true
	m.slots[idx].client = nil
}

// installClientLocked installs c at name's slot, bumping generation so any
// previously issued LanguageServerId for a dead server at this slot fails
// validation. Must be called with m.mu held.
func (m *Manager) installClientLocked(name string, c *Client) {
	idx, ok := m.byName[name]
	if !ok {
		idx = uint16(len(m.slots))
		m.slots = append(m.slots, serverSlot{})
		m.byName[name] = idx
	}
	m.slots[idx].client = c
	m.slots[idx].broken = false
	m.slots[idx].generation++
}

func (m *Manager) startClient(ctx context.Context, name string, cfg *powernapconfig.ServerConfig, root, cmdPath string) (*Client, error) {
	rootURI := string(protocol.URIFromPath(root))
	pcfg := powernap.ClientConfig{
		Command:     cmdPath,
		Args:        cfg.Args,
		RootURI:     rootURI,
		Environment: cfg.Environment,
		Settings:    cfg.Settings,
		InitOptions: cfg.InitOptions,
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: rootURI, Name: filepath.Base(root)},
		},
	}
	c, err := newClient(name, pcfg)
	if err != nil {
		return nil, err
	}
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := c.initialize(initCtx); err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("initialize: %w", err)
	}
	log.Info().Str("server", name).Str("root", root).Str("cmd", cmdPath).Msg("lspclient: server started")
	return c, nil
}

func matchesFileType(cfg *powernapconfig.ServerConfig, lang string) bool {
	for _, ft := range cfg.FileTypes {
		if ft == lang {
			return true
		}
	}
	return false
}

func findRoot(absPath string, markers []string) string {
	dir := filepath.Dir(absPath)
	for {
		for _, marker := range markers {
			if matches, _ := filepath.Glob(filepath.Join(dir, marker)); len(matches) > 0 {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func lookPath(command string) string {
	if p, err := exec.LookPath(command); err == nil {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	var extras []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		extras = append(extras, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		extras = append(extras, filepath.Join(gopath, "bin"))
	}
	extras = append(extras,
		filepath.Join(home, "go", "bin"),
		filepath.Join(home, ".cargo", "bin"),
		filepath.Join(home, ".local", "bin"),
	)
	for _, dir := range extras {
		p := filepath.Join(dir, command)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
