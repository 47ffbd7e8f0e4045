// Package overlay implements the polymorphic overlay-controller model of
// spec.md §4.5, generalized from the single hardcoded file-search modal in
// _examples/sacenox-symb/internal/tui/modal/modal.go into a trait-equivalent
// OverlayController interface that the layout layers of component H host.
package overlay

import tea "charm.land/bubbletea/v2"

// Role names a layout anchor that Below rects are positioned relative to.
type Role string

const (
	RoleStatusLine Role = "status_line"
	RoleEditor     Role = "editor"
)

// RectPolicy describes how an overlay resolves its on-screen rect, mirroring
// spec.md §4.5's RectPolicy::{TopCenter, Below}.
type RectPolicy struct {
	// TopCenter fields, used unless Below is set.
	WidthPct int
	MaxWidth int
	MinWidth int
	YFrac    float64
	Height   int

	// Below fields.
	Below    bool
	Anchor   Role
	OffsetY  int
}

// TopCenter builds a RectPolicy anchored as a percentage-width box near the
// top of the screen, matching the file-search modal's 80%-width placement.
func TopCenter(widthPct, maxWidth, minWidth int, yFrac float64, height int) RectPolicy {
	return RectPolicy{WidthPct: widthPct, MaxWidth: maxWidth, MinWidth: minWidth, YFrac: yFrac, Height: height}
}

// BelowAnchor builds a RectPolicy anchored directly below a named role, such
// as a completion popup hanging under the status line.
func BelowAnchor(anchor Role, offsetY, height int) RectPolicy {
	return RectPolicy{Below: true, Anchor: anchor, OffsetY: offsetY, Height: height}
}

// Rect is an absolute screen rectangle (duplicated from internal/layout to
// keep this package free of a layout import; the two are structurally
// interchangeable).
type Rect struct{ X, Y, W, H int }

// Context carries what a controller needs to resolve its rect and render.
type Context struct {
	ScreenW, ScreenH int
	AnchorRects      map[Role]Rect
}

// Resolve computes an absolute Rect for p against ctx, shifting TopCenter
// boxes to stay on-screen and intersecting Below boxes against the anchor's
// rect, with u32-style overflow-safe clamping throughout.
func (p RectPolicy) Resolve(ctx Context) Rect {
	if p.Below {
		anchor, ok := ctx.AnchorRects[p.Anchor]
		if !ok {
			anchor = Rect{W: ctx.ScreenW, H: ctx.ScreenH}
		}
		y := anchor.Y + anchor.H + p.OffsetY
		h := p.Height
		if y+h > ctx.ScreenH {
			h = ctx.ScreenH - y
		}
		if h < 0 {
			h = 0
		}
		return Rect{X: anchor.X, Y: y, W: anchor.W, H: h}
	}

	w := ctx.ScreenW * p.WidthPct / 100
	if p.MaxWidth > 0 && w > p.MaxWidth {
		w = p.MaxWidth
	}
	if p.MinWidth > 0 && w < p.MinWidth {
		w = p.MinWidth
	}
	if w > ctx.ScreenW {
		w = ctx.ScreenW
	}
	h := p.Height
	if h > ctx.ScreenH {
		h = ctx.ScreenH
	}
	x := (ctx.ScreenW - w) / 2
	if x < 0 {
		x = 0
	}
	y := int(float64(ctx.ScreenH) * p.YFrac)
	if y+h > ctx.ScreenH {
		y = ctx.ScreenH - h
	}
	if y < 0 {
		y = 0
	}
	return Rect{X: x, Y: y, W: w, H: h}
}

// UiSpec is what a controller declares about its own placement and chrome.
type UiSpec struct {
	Policy RectPolicy
	Title  string
}

// CloseReason distinguishes why an overlay closed, so controllers can tell
// a deliberate commit apart from dismissal or focus loss.
type CloseReason int

const (
	CloseCommitted CloseReason = iota
	CloseCancelled
	CloseFocusLost
)

// Item is a single selectable entry, as produced by a controller's own
// search/listing logic.
type Item struct {
	Name string
	Desc string
	Data any
}

// Controller is the trait-equivalent every overlay implements: palettes,
// file pickers, LSP code-action/rename menus, and search all share this
// shape, differing only in how they populate items and handle commit.
type Controller interface {
	Name() string
	UiSpec(ctx Context) UiSpec
	OnOpen() tea.Cmd
	OnInputChanged(query string) tea.Cmd
	OnCommit(item Item) tea.Cmd
	OnClose(reason CloseReason)
}

// Action is what HandleMsg hands back to the caller to act on; nil means no
// action this tick.
type Action any

// ActionClose asks the host to dismiss the overlay.
type ActionClose struct{ Reason CloseReason }

// ActionCommit asks the host to run item's effect and then dismiss.
type ActionCommit struct{ Item Item }
