package input

import (
	"time"
)

// stickyTimeout bounds how long Handler waits on an ExactWithContinuation
// match before resolving to the shorter action, so typing "g" alone (when
// "gg" also exists) eventually fires rather than hanging forever.
const stickyTimeout = 600 * time.Millisecond

// Resolved is a fully parsed command ready for dispatch: an optional numeric
// count prefix (vim's "3dd"), an optional register name ('"a' style), and
// the bound action name.
type Resolved struct {
	Count    int // 0 means "no count given"; callers should default to 1
	Register rune
	Action   string
}

// Handler accumulates keystrokes against a Keymap, resolving counts,
// registers, and multi-key sequences. One Handler is stateful per editor
// view since different windows may be mid-sequence independently.
type Handler struct {
	km *Keymap

	mode     Mode
	pending  []string
	count    string
	register rune
	lastKey  time.Time

	// sticky holds an ExactWithContinuation match's Resolved command while
	// Handler waits to see whether the next keystroke extends it into a
	// longer binding. It commits via Tick once stickyTimeout elapses, or is
	// superseded/discarded the moment the next Feed call resolves the
	// continued sequence to something else.
	sticky   *Resolved
	stickyAt time.Time
}

// NewHandler builds a Handler bound to km, starting in ModeNormal.
func NewHandler(km *Keymap) *Handler {
	return &Handler{km: km, mode: ModeNormal}
}

// Mode returns the handler's current mode.
func (h *Handler) Mode() Mode { return h.mode }

// SetMode switches modes, clearing any in-progress sequence.
func (h *Handler) SetMode(m Mode) {
	h.mode = m
	h.resetPending()
}

func (h *Handler) resetPending() {
	h.pending = nil
	h.count = ""
	h.register = 0
	h.sticky = nil
}

// Feed processes one keystroke (as bubbletea's msg.Keystroke() string) and
// returns a Resolved command if one completed, or ok=false if the sequence
// is still pending (a Prefix match) or was not recognized at all (in which
// case, in ModeInsert, the caller should treat the keystroke as literal
// text input rather than a command).
func (h *Handler) Feed(key string) (Resolved, bool) {
	now := time.Now()
	if len(h.pending) > 0 && now.Sub(h.lastKey) > stickyTimeout {
		// Stale pending state from a gap Tick never saw (e.g. Tick not
		// wired, or the gap spans a mode switch): drop it rather than
		// commit, since committing here would swallow the keystroke that
		// triggered this Feed call. The normal path is Tick firing well
		// before the next keystroke arrives, since it runs on every frame.
		h.resetPending()
	}
	h.lastKey = now

	// Escape is a hard cancel for an in-progress sequence, sticky or not: it
	// clears the pending keys and returns unresolved rather than committing
	// whatever sticky action was armed. A bare "esc" with no pending
	// sequence falls through to the normal trie lookup below, which is how
	// it resolves to the global mode.to_normal binding.
	if key == "esc" && len(h.pending) > 0 {
		h.resetPending()
		return Resolved{}, false
	}

	// In insert mode, only a small set of control sequences route through
	// the keymap at all; everything else is literal text handled upstream
	// by the caller (the rope/transaction layer), matching how the teacher
	// never intercepts printable runes once a text field has focus.
	if h.mode == ModeInsert && len(h.pending) == 0 && !isControlKey(key) {
		return Resolved{}, false
	}

	if len(h.pending) == 0 && h.register == 0 && len(key) == 2 && key[0] == '"' {
		h.register = rune(key[1])
		return Resolved{}, false
	}
	if len(h.pending) == 0 && isDigit(key) && !(key == "0" && h.count == "") {
		h.count += key
		return Resolved{}, false
	}

	h.pending = append(h.pending, key)
	action, kind := h.km.Lookup(h.mode, h.pending)

	switch kind {
	case NoMatch:
		// The sequence that was waiting on a shorter sticky binding just
		// extended into something unbound: the continuation is cancelled,
		// so commit the sticky action that was armed for it instead of
		// silently dropping both.
		if sticky := h.sticky; sticky != nil {
			r := *sticky
			h.resetPending()
			return r, true
		}
		h.resetPending()
		return Resolved{}, false
	case Prefix:
		return Resolved{}, false
	case Exact:
		count := 0
		if h.count != "" {
			count = parseCount(h.count)
		}
		reg := h.register
		h.resetPending()
		return Resolved{Count: count, Register: reg, Action: action}, true
	case ExactWithContinuation:
		// A longer binding shares this prefix: hold the match as sticky
		// rather than firing immediately, so a following key has a chance
		// to resolve the longer sequence instead. Tick commits it once
		// stickyTimeout elapses with no further key arriving.
		count := 0
		if h.count != "" {
			count = parseCount(h.count)
		}
		r := Resolved{Count: count, Register: h.register, Action: action}
		h.sticky = &r
		h.stickyAt = now
		return Resolved{}, false
	default:
		h.resetPending()
		return Resolved{}, false
	}
}

// Tick checks whether an armed sticky match (from an ExactWithContinuation
// Lookup) has outlived stickyTimeout with no further key extending it, and
// if so commits it. Callers drive this from their frame loop; it is the
// primary path by which a sticky match resolves when typing stops (distinct
// from Feed's cancellation path, which fires when a further key resolves
// the sequence to something else instead).
func (h *Handler) Tick(now time.Time) (Resolved, bool) {
	if h.sticky == nil || now.Sub(h.stickyAt) < stickyTimeout {
		return Resolved{}, false
	}
	r := *h.sticky
	h.resetPending()
	return r, true
}

// PendingSequence exposes the in-progress key sequence, e.g. for a status
// line hint ("g-") while a sticky prefix awaits its next key.
func (h *Handler) PendingSequence() []string { return append([]string(nil), h.pending...) }

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

func parseCount(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// namedKeys are bubbletea keystroke names that never represent literal text,
// even though they carry no "ctrl+"-style modifier prefix.
var namedKeys = map[string]bool{
	"esc": true, "enter": true, "tab": true, "backspace": true, "delete": true,
	"up": true, "down": true, "left": true, "right": true,
	"home": true, "end": true, "pgup": true, "pgdown": true,
}

func isControlKey(key string) bool {
	if namedKeys[key] {
		return true
	}
	for _, r := range key {
		if r == '+' {
			return true // any modifier combo ("ctrl+...", "alt+...") routes through the keymap
		}
	}
	return false
}
