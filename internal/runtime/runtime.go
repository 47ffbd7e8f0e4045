// Package runtime wires components A-J (and, once built, F/L/M/N/O/P/Q/R)
// into the editor's tick loop, grounded on
// _examples/sacenox-symb/internal/tui/update.go's Model.Update switch: a
// frame tick drives background draining the way the teacher's frameTick
// drives streaming-entry rebuilds, an open overlay intercepts all input the
// way the teacher's file-search modal does, and unhandled messages forward
// to sub-models the way forwardToSubModels does.
package runtime

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"tome.dev/tome/internal/buffer"
	"tome.dev/tome/internal/highlight"
	"tome.dev/tome/internal/input"
	"tome.dev/tome/internal/layout"
	"tome.dev/tome/internal/overlay"
	"tome.dev/tome/internal/scheduler"
	"tome.dev/tome/internal/syntax"
	"tome.dev/tome/internal/uistate"
	"tome.dev/tome/internal/undo"
)

// frameInterval matches the teacher's 60fps frameTick.
const frameInterval = time.Second / 60

// drainBudget bounds how much scheduler work a single tick may drain,
// keeping the UI responsive per spec.md §4.4/§5.
const drainBudget = 4 * time.Millisecond

// tickMsg drives the periodic frame, identical in spirit to the teacher's
// tickMsg/frameTick pair.
type tickMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// OverlayOpenMsg asks the Runtime to open an overlay controller.
type OverlayOpenMsg struct {
	Controller overlay.Controller
	Colors     overlay.Colors
}

// Host is the cross-component callback surface the Runtime exposes to
// overlay commit handlers, input actions, and undo hosts — the Go
// equivalent of the teacher's method-rich Model receiver, narrowed to an
// interface so individual components don't import the whole runtime.
type Host interface {
	undo.UndoHost
}

// Runtime is the top-level Elm-architecture Model: it owns every
// component's manager and drives one tick loop over all of them.
type Runtime struct {
	Buffers  *buffer.BufferManager
	Undo     *undo.Manager
	Sched    *scheduler.Scheduler
	Layout   *layout.Manager
	Keymap   *input.Keymap
	Keys     *input.Handler
	Syntax   *syntax.Manager

	activeOverlay *overlay.Driver
	activeCtrl    overlay.Controller

	// SaveHooks run, in order, after a document is written to disk by the
	// buffer.save action — the binding site for component R's sandboxed
	// scripts and component O's plugins to observe buffer_saved without
	// internal/runtime importing either (both sit above K in the
	// dependency order of spec.md §2).
	SaveHooks []func(path, content string)

	// Toasts is the component P surface NotifyReadonly and the undo
	// no-notification paths push onto; rendered by view.go under
	// overlay.RoleStatusLine.
	Toasts *uistate.ToastStack

	// PaletteCommands, if set, supplies the command list for
	// "overlay.open_command_palette" — a closure rather than a direct
	// *registry.Registry field since internal/registry imports this
	// package and a direct field would cycle; cmd/tome wires this from
	// its own component N registry.
	PaletteCommands func() []overlay.Command

	Theme string

	screenW, screenH int
	quitting         bool
}

// New builds a Runtime with default bindings and a single scratch buffer
// focused, matching Document::SCRATCH's "always exists" contract (§3).
func New() *Runtime {
	bufs := buffer.NewBufferManager()
	scratch := bufs.OpenScratch()
	km := input.DefaultKeymap()
	sched := scheduler.New()
	r := &Runtime{
		Buffers: bufs,
		Undo:    undo.NewManager(),
		Sched:   sched,
		Layout:  layout.NewManager(layout.NewSingle(layout.ViewID(scratch.ID)), layout.Rect{}),
		Keymap:  km,
		Keys:    input.NewHandler(km),
		Syntax:  syntax.NewManager(sched),
		Toasts:  uistate.NewToastStack(),
		Theme:   "vulcan",
	}
	r.openSyntaxFor(scratch.DocID)
	return r
}

// syntaxSource builds a syntax.Source closure reading docID's current
// content and version directly from the BufferManager, keeping
// internal/syntax from needing to import internal/buffer (component F
// stays leaf-ward of D per spec.md §2's dependency order).
func (r *Runtime) syntaxSource(docID buffer.DocumentId) syntax.Source {
	return func() ([]byte, uint64) {
		doc, err := r.Buffers.GetDocument(docID)
		if err != nil {
			return nil, 0
		}
		return []byte(doc.Content.String()), doc.Version
	}
}

// openSyntaxFor registers docID with the syntax manager, detecting its
// language from its path (component S's internal/highlight.DetectLanguage,
// shared with the token-coloring path).
func (r *Runtime) openSyntaxFor(docID buffer.DocumentId) {
	doc, err := r.Buffers.GetDocument(docID)
	if err != nil {
		return
	}
	lang := highlight.DetectLanguage(doc.Path)
	doc.LanguageID = lang
	r.Syntax.Open(syntax.DocID(docID), lang, len([]byte(doc.Content.String())))
}

// ensureSyntaxForFocused runs one syntax scheduling cycle for the focused
// buffer's document over its current scroll viewport.
func (r *Runtime) ensureSyntaxForFocused() {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return
	}
	r.Syntax.MarkVisible(syntax.DocID(buf.DocID))
	vp := syntax.ViewportKey{} // whole-document viewport until a byte-range scroll mapping is wired from the render layer
	r.Syntax.EnsureSyntax(context.Background(), syntax.DocID(buf.DocID), vp, r.syntaxSource(buf.DocID))
}

// OpenFile loads path's contents into a fresh buffer, registers it with
// the syntax manager, and focuses it — the entry point's counterpart to
// New()'s scratch-buffer bootstrap.
func (r *Runtime) OpenFile(path string, content string) {
	buf := r.Buffers.OpenDocument(path, content)
	r.openSyntaxFor(buf.DocID)
	r.Buffers.SetFocus(buf.ID)
	r.Layout.SetLayer(r.Layout.TopLayer(), layout.NewSingle(layout.ViewID(buf.ID)))
}

// Init starts the frame tick, mirroring the teacher's Init command.
func (r *Runtime) Init() tea.Cmd { return frameTick() }

// Update is the Elm-architecture update step, satisfying tea.Model.
func (r *Runtime) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if r.activeOverlay != nil {
		if mdl, cmd, handled := r.updateOverlay(msg); handled {
			return mdl, cmd
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.screenW, r.screenH = msg.Width, msg.Height
		r.Layout.SetDocArea(layout.Rect{W: uint32(msg.Width), H: uint32(msg.Height)})
		return r, nil

	case tea.KeyPressMsg:
		return r.handleKeyPress(msg)

	case tickMsg:
		// §4.7 tick order: drain completed syntax inflight first, then
		// drain the general work scheduler, then (re-)kick syntax work for
		// whatever is currently focused.
		r.Syntax.DrainFinishedInflight()
		r.Sched.DrainBudget(context.Background(), drainBudget)
		r.ensureSyntaxForFocused()
		r.Syntax.ApplyRetention()
		r.Toasts.Tick(time.Time(msg))
		var tickCmd tea.Cmd
		if resolved, ok := r.Keys.Tick(time.Time(msg)); ok {
			tickCmd = r.dispatch(resolved)
		}
		return r, tea.Batch(frameTick(), tickCmd)

	case OverlayOpenMsg:
		r.openOverlay(msg.Controller, msg.Colors)
		return r, nil
	}

	return r, nil
}

func (r *Runtime) openOverlay(ctrl overlay.Controller, colors overlay.Colors) {
	driver, cmd := overlay.NewDriver(ctrl, colors)
	if a, ok := ctrl.(interface{ AttachDriver(*overlay.Driver) }); ok {
		a.AttachDriver(driver)
		ctrl.OnOpen()
	}
	r.activeOverlay = driver
	r.activeCtrl = ctrl
	_ = cmd // the caller that constructs OverlayOpenMsg is responsible for any
	// async prefetch; Init-time commands from NewDriver are intentionally
	// dropped here since the controllers (file picker, palette) seed their
	// item list synchronously in OnOpen once their driver is attached above.
}

func (r *Runtime) updateOverlay(msg tea.Msg) (*Runtime, tea.Cmd, bool) {
	action, cmd := r.activeOverlay.HandleMsg(msg)
	switch a := action.(type) {
	case overlay.ActionClose:
		r.activeOverlay.Close(a.Reason)
		r.activeOverlay = nil
		r.activeCtrl = nil
		return r, cmd, true
	case overlay.ActionCommit:
		r.activeOverlay.Close(overlay.CloseCommitted)
		r.activeOverlay = nil
		r.activeCtrl = nil
		return r, cmd, true
	}
	if _, ok := msg.(tea.KeyPressMsg); ok {
		return r, cmd, true
	}
	return r, cmd, false
}

func (r *Runtime) handleKeyPress(msg tea.KeyPressMsg) (*Runtime, tea.Cmd) {
	key := msg.Keystroke()
	resolved, ok := r.Keys.Feed(key)
	if !ok {
		// Feed returned false either because a sequence is still pending or,
		// in Insert mode, because key isn't one of the few control
		// sequences the keymap intercepts there — in that case it's
		// literal text, inserted at the cursor per §3's grouped Insert-mode
		// coalescing.
		if r.Keys.Mode() == input.ModeInsert && len([]rune(key)) == 1 {
			r.InsertText(key)
		}
		return r, nil
	}
	return r, r.dispatch(resolved)
}

// ActionFunc is what the registry (component N) binds action names to; the
// Runtime only needs to know how to look one up and call it.
type ActionFunc func(r *Runtime, count int, register rune) tea.Cmd

func (r *Runtime) dispatch(cmd input.Resolved) tea.Cmd {
	fn, ok := registeredActions[cmd.Action]
	if !ok {
		return nil
	}
	return fn(r, cmd.Count, cmd.Register)
}

var registeredActions = map[string]ActionFunc{}

// RegisterAction binds name to fn for dispatch from resolved keymap actions.
func RegisterAction(name string, fn ActionFunc) { registeredActions[name] = fn }

// DispatchAction invokes the action named name directly, bypassing the
// keymap — the command palette's command.Run closures (built from
// PaletteCommands) call this rather than re-resolving a keystroke.
func (r *Runtime) DispatchAction(name string) tea.Cmd {
	fn, ok := registeredActions[name]
	if !ok {
		return nil
	}
	return fn(r, 1, 0)
}

// Quit marks the runtime for shutdown; the program loop observes Quitting().
func (r *Runtime) Quit() { r.quitting = true }

// Quitting reports whether Quit was called.
func (r *Runtime) Quitting() bool { return r.quitting }
