package uistate

import "tome.dev/tome/internal/overlay"

// InfoPopup is a single anchored, non-interactive info box (hover docs,
// signature help, a which-key hint per spec.md's "sticky binding...
// surface a 'what does this prefix do' hint"). Unlike a Toast it has no
// auto-dismiss: it closes when its trigger condition ends (cursor moved
// off the hovered symbol, the pending keymap sequence resolved).
type InfoPopup struct {
	Title   string
	Body    string
	Anchor  overlay.Role
	Visible bool
}

// Show replaces the popup's content and makes it visible.
func (p *InfoPopup) Show(title, body string, anchor overlay.Role) {
	p.Title = title
	p.Body = body
	p.Anchor = anchor
	p.Visible = true
}

// Hide clears the popup.
func (p *InfoPopup) Hide() {
	*p = InfoPopup{}
}
