// Package registry holds the editor's static catalogs: actions, hooks, and
// the syntax theme/options the rest of the system references by name. The
// catalog-of-named-constants style is grounded on
// _examples/sacenox-symb/internal/constants/constants.go (a single
// SyntaxTheme constant plus an enumerated-in-comment theme catalog);
// this package generalizes that single constant to the full action/hook
// plane spec.md §4.7 and §6 name as the editor's extension surface.
package registry

import "tome.dev/tome/internal/runtime"

// SyntaxTheme is the teacher's Chroma theme name, carried over unchanged
// from its constants.SyntaxTheme. Nothing reads it: the editor's default
// theme comes from config.SyntaxThemeOrDefault.
const SyntaxTheme = "github-dark"

// Action describes one named, invokable editor operation bindable from the
// keymap (component J) or the command palette (component I).
type Action struct {
	Name string
	Desc string
	Run  runtime.ActionFunc
}

// HookEvent names a point in the editor's lifecycle plugins (component O)
// or scripts (component R) may observe.
type HookEvent string

const (
	HookBufferOpened       HookEvent = "buffer_opened"
	HookBufferSaved        HookEvent = "buffer_saved"
	HookBufferClosed       HookEvent = "buffer_closed"
	HookSelectionChanged   HookEvent = "selection_changed"
	HookDiagnosticsUpdated HookEvent = "diagnostics_updated"
	HookModeChanged        HookEvent = "mode_changed"
)

// HookHandler runs in response to a HookEvent firing.
type HookHandler func(event HookEvent, payload any)

// Registry is the process-wide catalog of actions and hook subscribers.
type Registry struct {
	actions map[string]Action
	hooks   map[HookEvent][]HookHandler
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{actions: map[string]Action{}, hooks: map[HookEvent][]HookHandler{}}
}

// RegisterAction adds a to the catalog and, when a.Run is non-nil, wires it
// into the runtime's dispatch table so the keymap (component J) can invoke
// it by name.
func (r *Registry) RegisterAction(a Action) {
	r.actions[a.Name] = a
	if a.Run != nil {
		runtime.RegisterAction(a.Name, a.Run)
	}
}

// Actions returns every registered action, for the command palette's
// candidate list (component I).
func (r *Registry) Actions() []Action {
	out := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	return out
}

// Action looks up a single action by name.
func (r *Registry) Action(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Subscribe registers fn to run whenever event fires.
func (r *Registry) Subscribe(event HookEvent, fn HookHandler) {
	r.hooks[event] = append(r.hooks[event], fn)
}

// Fire runs every handler subscribed to event, in registration order.
func (r *Registry) Fire(event HookEvent, payload any) {
	for _, fn := range r.hooks[event] {
		fn(event, payload)
	}
}
