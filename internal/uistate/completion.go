package uistate

import "tome.dev/tome/internal/pathutil"

// CompletionItem is one LSP/snippet completion candidate presented in the
// inline completion menu (as distinct from component I's overlay-stack
// controllers: completion is anchored to the cursor, not the overlay
// stack, per spec.md §4.9's "the completion menu... overlays the active
// input rect with its own hit-test region").
type CompletionItem struct {
	Label      string
	Detail     string
	InsertText string
}

// CompletionState holds the candidate list, the live filter query, and
// the selected index, generalizing the navigation logic in
// overlay.Driver.handleNav to the cursor-anchored completion menu.
type CompletionState struct {
	all      []CompletionItem
	filtered []CompletionItem
	query    string
	selected int
	open     bool
}

// NewCompletionState returns a closed, empty completion menu.
func NewCompletionState() *CompletionState {
	return &CompletionState{}
}

// Open populates the candidate list and opens the menu with an empty
// filter.
func (c *CompletionState) Open(items []CompletionItem) {
	c.all = items
	c.query = ""
	c.selected = 0
	c.open = true
	c.refilter()
}

// Close clears the menu.
func (c *CompletionState) Close() {
	c.all = nil
	c.filtered = nil
	c.query = ""
	c.selected = 0
	c.open = false
}

// IsOpen reports whether the completion menu is currently showing.
func (c *CompletionState) IsOpen() bool { return c.open }

// SetQuery updates the filter and re-ranks candidates by fuzzy match
// against their Label, reusing component S's scorer so the completion
// menu and the file picker rank candidates the same way.
func (c *CompletionState) SetQuery(query string) {
	c.query = query
	c.refilter()
}

func (c *CompletionState) refilter() {
	if c.query == "" {
		c.filtered = append([]CompletionItem(nil), c.all...)
		c.selected = 0
		return
	}
	labels := make([]string, len(c.all))
	for i, it := range c.all {
		labels[i] = it.Label
	}
	matches := pathutil.FuzzyFilter(c.query, labels, 0)
	c.filtered = c.filtered[:0]
	for _, m := range matches {
		for _, it := range c.all {
			if it.Label == m.Candidate {
				c.filtered = append(c.filtered, it)
				break
			}
		}
	}
	if c.selected >= len(c.filtered) {
		c.selected = 0
	}
}

// Items returns the currently-ranked, filtered candidates.
func (c *CompletionState) Items() []CompletionItem { return c.filtered }

// Selected returns the highlighted candidate, or false if the menu is
// empty.
func (c *CompletionState) Selected() (CompletionItem, bool) {
	if c.selected < 0 || c.selected >= len(c.filtered) {
		return CompletionItem{}, false
	}
	return c.filtered[c.selected], true
}

// Next/Prev move the selection, wrapping at either end.
func (c *CompletionState) Next() {
	if len(c.filtered) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.filtered)
}

func (c *CompletionState) Prev() {
	if len(c.filtered) == 0 {
		return
	}
	c.selected = (c.selected - 1 + len(c.filtered)) % len(c.filtered)
}
