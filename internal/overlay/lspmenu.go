package overlay

import tea "charm.land/bubbletea/v2"

// LSPAction is one entry in a code-action or rename menu, carrying the edit
// to apply on commit. The edit itself is produced by component L/M and
// handed to this controller fully formed; the controller only presents and
// selects among alternatives.
type LSPAction struct {
	Title string
	Apply func() tea.Cmd
}

// LSPMenuController presents a small, non-searchable list of LSP-provided
// actions (code actions, rename targets, symbol picks) anchored below the
// status line rather than centered, matching spec.md §4.9's overlay-routing
// distinction between modal search dialogs and lightweight anchored menus.
type LSPMenuController struct {
	title   string
	actions []LSPAction
	driver  *Driver
}

// NewLSPMenuController builds a controller over a fixed, pre-fetched action
// list (the round trip to the language server has already completed by the
// time the overlay opens).
func NewLSPMenuController(title string, actions []LSPAction) *LSPMenuController {
	return &LSPMenuController{title: title, actions: actions}
}

func (c *LSPMenuController) Name() string { return "lsp_menu" }

func (c *LSPMenuController) UiSpec(ctx Context) UiSpec {
	h := len(c.actions) + 2
	if h > 12 {
		h = 12
	}
	return UiSpec{Policy: BelowAnchor(RoleStatusLine, 0, h), Title: c.title}
}

func (c *LSPMenuController) OnOpen() tea.Cmd {
	items := make([]Item, len(c.actions))
	for i, a := range c.actions {
		items[i] = Item{Name: a.Title, Data: i}
	}
	if c.driver != nil {
		c.driver.SetItems(items)
	}
	return nil
}

// OnInputChanged is a no-op: LSP menus are navigated, not searched.
func (c *LSPMenuController) OnInputChanged(query string) tea.Cmd { return nil }

func (c *LSPMenuController) OnCommit(item Item) tea.Cmd {
	idx, ok := item.Data.(int)
	if !ok || idx < 0 || idx >= len(c.actions) {
		return nil
	}
	action := c.actions[idx]
	if action.Apply == nil {
		return nil
	}
	return action.Apply()
}

func (c *LSPMenuController) OnClose(reason CloseReason) {}

func (c *LSPMenuController) AttachDriver(d *Driver) { c.driver = d }
