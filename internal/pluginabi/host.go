package pluginabi

import (
	"sync"

	"tome.dev/tome/internal/overlay"
)

// TomeHostV2 is the function-pointer table handed to a plugin at load time.
// Each field is the Go-side stand-in for what a cgo export would pass as a
// raw function pointer; the field set and order mirror spec.md §4.11's
// "notify/panel/fs/chat operations" grouping.
type TomeHostV2 struct {
	Notify     func(level NotifyLevel, message TomeStr)
	OpenPanel  func(spec PanelSpec) (PanelHandle, error)
	ClosePanel func(h PanelHandle)
	FsRequest  func(req FsRequest) (TomeOwnedStr, error)
	// Chat is named for the ABI's ambient "chat operations" grouping, but
	// here it is a generic host-mediated outbound call a plugin cannot
	// make directly (no raw network access): it goes through a
	// CredentialSource so token refresh and auth failures are handled once,
	// centrally, instead of per plugin.
	Chat func(req ChatRequest) (ChatResponse, error)
}

// PanelHandle identifies a panel a plugin opened via TomeHostV2.OpenPanel,
// backed by component I's overlay driver.
type PanelHandle uint64

// ChatRequest/ChatResponse are the host-mediated outbound-call shape a
// plugin uses when it needs a credentialed external service (e.g. the
// broker's KnowledgeSearch backend from spec.md §6); grounded on
// internal/provider's Message/ChatResponse wire shape, stripped to what a
// plugin call needs (no streaming — polled via GuestTable.PollEvent
// instead, per §4.11's "guest v-table... poll_event").
type ChatRequest struct {
	Endpoint string
	Body     TomeStr
}

type ChatResponse struct {
	Body TomeOwnedStr
}

// GuestEvent is what GuestTable.PollEvent returns; EventNone means nothing
// is pending this tick.
type GuestEventKind int

const (
	EventNone GuestEventKind = iota
	EventPanelSubmit
	EventPermissionRequest
)

type GuestEvent struct {
	Kind       GuestEventKind
	PanelInput TomeStr
	Permission PermissionRequest
}

// GuestTable is the v-table each plugin returns describing its exported
// callbacks, per spec.md §4.11.
type GuestTable struct {
	OnPanelSubmit         func(h PanelHandle, input TomeStr)
	PollEvent             func() GuestEvent
	FreeStr               func(s TomeOwnedStr)
	FreePermissionRequest func(p PermissionRequest)
}

// PluginContextGuard installs the currently-active editor/manager pointers
// before a plugin call and restores the previous ones when released,
// mirroring spec.md §4.11's "installs the current editor/manager pointers
// into a thread-local before any call and restores on drop so
// host-callbacks reentering the editor see the right state." Go has no
// thread-locals, and the concurrency model (§5: "the editor runtime is
// owned by the UI thread and is not Send") means every plugin call happens
// serialized on the same goroutine as the UI tick, so a single
// mutex-guarded package-level slot plays the same role a thread-local
// would in the original.
var contextMu sync.Mutex
var currentCtx *PluginContext

// PluginContext is what a reentrant host callback sees while a plugin call
// is in flight.
type PluginContext struct {
	Manager *Manager
	Overlay *overlay.Driver
}

// PluginContextGuard remembers the context that was active before one
// plugin call; contextMu is held only while EnterPluginContext and Release
// swap the active context.
type PluginContextGuard struct {
	prev *PluginContext
}

// EnterPluginContext installs ctx as the active context and returns a
// guard; call Release (typically via defer) when the call this context
// covers returns. Nesting is expected: a host callback that reenters the
// editor mid-plugin-call installs its own context and restores the outer
// one on Release, exactly as a thread-local push/pop would.
func EnterPluginContext(ctx *PluginContext) *PluginContextGuard {
	contextMu.Lock()
	prev := currentCtx
	currentCtx = ctx
	contextMu.Unlock()
	return &PluginContextGuard{prev: prev}
}

// Release restores the context active before this guard was entered.
func (g *PluginContextGuard) Release() {
	contextMu.Lock()
	currentCtx = g.prev
	contextMu.Unlock()
}

// CurrentContext returns the context installed by the innermost active
// PluginContextGuard, or nil if no plugin call is in flight.
func CurrentContext() *PluginContext {
	contextMu.Lock()
	defer contextMu.Unlock()
	return currentCtx
}
