// Package input implements the modal (vim-like) key handling of spec.md
// §4.6: a mode-indexed keymap trie with sticky-prefix matching, generalized
// from _examples/sacenox-symb/internal/tui/update_keypress.go's flat
// keystroke-to-handler map. The teacher has no notion of input modes or
// multi-key sequences (every binding is a single keystroke dispatched
// immediately); this package adds the Mode dimension and sequence
// resolution the spec requires while keeping the teacher's "map lookup,
// handler returns (handled bool)" shape at the leaf.
package input

// Mode is the editor's current input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeWindow
	ModePendingAction
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInsert:
		return "insert"
	case ModeWindow:
		return "window"
	case ModePendingAction:
		return "pending_action"
	default:
		return "unknown"
	}
}

// trieNode is one step of a keystroke sequence within a single mode.
type trieNode struct {
	children map[string]*trieNode
	action   string // non-empty if a binding terminates here
}

func newTrieNode() *trieNode { return &trieNode{children: map[string]*trieNode{}} }

// Keymap holds one binding trie per mode.
type Keymap struct {
	roots map[Mode]*trieNode
}

// NewKeymap returns an empty Keymap with a root node per mode.
func NewKeymap() *Keymap {
	k := &Keymap{roots: map[Mode]*trieNode{}}
	for _, m := range []Mode{ModeNormal, ModeInsert, ModeWindow, ModePendingAction} {
		k.roots[m] = newTrieNode()
	}
	return k
}

// Bind registers keys (a keystroke sequence, e.g. []string{"g","g"}) to fire
// action in mode. A later Bind to the same sequence overwrites the action.
func (k *Keymap) Bind(mode Mode, keys []string, action string) {
	root, ok := k.roots[mode]
	if !ok {
		root = newTrieNode()
		k.roots[mode] = root
	}
	node := root
	for _, key := range keys {
		next, ok := node.children[key]
		if !ok {
			next = newTrieNode()
			node.children[key] = next
		}
		node = next
	}
	node.action = action
}

// MatchKind classifies a Lookup result.
type MatchKind int

const (
	NoMatch MatchKind = iota
	// Prefix means keys is a strict prefix of one or more bound sequences;
	// the caller should stay in "pending" state and wait for the next key,
	// matching vim's multi-key sequences (e.g. "d" before "dd").
	Prefix
	// Exact means keys exactly names a bound action and no longer binding
	// shares this prefix.
	Exact
	// ExactWithContinuation is Exact but the node has further children too.
	// Handler holds such a match as sticky and commits it only once a short
	// timeout elapses or the next key fails to extend the sequence — that
	// timeout policy lives in Handler, not here.
	ExactWithContinuation
)

// Lookup walks keys through mode's trie and reports what it found.
func (k *Keymap) Lookup(mode Mode, keys []string) (action string, kind MatchKind) {
	root, ok := k.roots[mode]
	if !ok {
		return "", NoMatch
	}
	node := root
	for _, key := range keys {
		next, ok := node.children[key]
		if !ok {
			return "", NoMatch
		}
		node = next
	}
	hasChildren := len(node.children) > 0
	switch {
	case node.action != "" && hasChildren:
		return node.action, ExactWithContinuation
	case node.action != "":
		return node.action, Exact
	case hasChildren:
		return "", Prefix
	default:
		return "", NoMatch
	}
}
