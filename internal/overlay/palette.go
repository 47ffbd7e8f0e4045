package overlay

import tea "charm.land/bubbletea/v2"

// Command is a single command-palette entry: a named action with the
// tea.Cmd it triggers on commit.
type Command struct {
	Name string
	Desc string
	Run  func() tea.Cmd
}

// PaletteController is a generic fuzzy-filtered command list, the same
// Driver shell as FilePickerController but over an in-memory command set
// rather than the filesystem — the "command palette" named in spec.md §4.5.
type PaletteController struct {
	commands []Command
	driver   *Driver
}

// NewPaletteController builds a controller over a fixed command set,
// typically sourced from the registry/action plane (component N).
func NewPaletteController(commands []Command) *PaletteController {
	return &PaletteController{commands: commands}
}

func (c *PaletteController) Name() string { return "command_palette" }

func (c *PaletteController) UiSpec(ctx Context) UiSpec {
	return UiSpec{Policy: TopCenter(50, 80, 30, 0.1, 16), Title: "Commands"}
}

func (c *PaletteController) OnOpen() tea.Cmd {
	if c.driver != nil {
		c.driver.SetItems(c.filter(""))
	}
	return nil
}

func (c *PaletteController) OnInputChanged(query string) tea.Cmd {
	if c.driver != nil {
		c.driver.SetItems(c.filter(query))
	}
	return nil
}

func (c *PaletteController) filter(query string) []Item {
	items := make([]Item, 0, len(c.commands))
	for i, cmd := range c.commands {
		if query == "" || fuzzyContainsSubsequence(query, cmd.Name) {
			items = append(items, Item{Name: cmd.Name, Desc: cmd.Desc, Data: i})
		}
	}
	return items
}

func fuzzyContainsSubsequence(pattern, s string) bool {
	pi := 0
	pr := []rune(pattern)
	for _, r := range s {
		if pi < len(pr) && toLowerRune(r) == toLowerRune(pr[pi]) {
			pi++
		}
	}
	return pi >= len(pr)
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func (c *PaletteController) OnCommit(item Item) tea.Cmd {
	idx, ok := item.Data.(int)
	if !ok || idx < 0 || idx >= len(c.commands) {
		return nil
	}
	cmd := c.commands[idx]
	if cmd.Run == nil {
		return nil
	}
	return cmd.Run()
}

func (c *PaletteController) OnClose(reason CloseReason) {}

func (c *PaletteController) AttachDriver(d *Driver) { c.driver = d }
