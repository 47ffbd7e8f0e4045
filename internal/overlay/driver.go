package overlay

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

const debounceDelay = 250 * time.Millisecond

// Colors mirrors modal.Colors so overlays inherit the same theme shape.
type Colors struct {
	Fg, Bg, Dim, SelFg, SelBg, Border string
}

type debounceMsg struct{ seq int }

// Driver is the generic input+list widget that hosts any Controller,
// generalizing _examples/sacenox-symb/internal/tui/modal.Model (which
// hardcoded a single file-search SearchFunc) into a shell any overlay
// plugs into by supplying its own Controller.
type Driver struct {
	ctrl   Controller
	input  []rune
	cursor int
	items  []Item
	sel    int
	inList bool
	seq    int
	colors Colors
}

// NewDriver opens ctrl and returns a ready Driver plus its startup command.
func NewDriver(ctrl Controller, colors Colors) (*Driver, tea.Cmd) {
	d := &Driver{ctrl: ctrl, colors: colors}
	return d, tea.Batch(ctrl.OnOpen(), d.debounceCmd())
}

func (d *Driver) debounceCmd() tea.Cmd {
	seq := d.seq
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg { return debounceMsg{seq: seq} })
}

// SetItems lets a controller push asynchronously produced results (e.g.
// after an LSP round trip) into the driver without going through the
// debounce path.
func (d *Driver) SetItems(items []Item) {
	d.items = items
	if d.sel >= len(items) {
		d.sel = 0
	}
}

// HandleMsg processes one tea.Msg, returning an Action the host should act
// on (closing or committing the overlay) and a tea.Cmd to dispatch.
func (d *Driver) HandleMsg(msg tea.Msg) (Action, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return d.handleKey(msg)
	case debounceMsg:
		if msg.seq == d.seq {
			cmd := d.ctrl.OnInputChanged(string(d.input))
			d.sel = 0
			d.inList = false
			return nil, cmd
		}
		return nil, nil
	}
	return nil, nil
}

func (d *Driver) handleKey(msg tea.KeyPressMsg) (Action, tea.Cmd) {
	switch msg.Keystroke() {
	case "esc":
		return ActionClose{Reason: CloseCancelled}, nil
	case "enter":
		return d.handleEnter()
	case "up", "down":
		d.handleNav(msg.Keystroke())
		return nil, nil
	case "backspace", "delete", "ctrl+u", "ctrl+k":
		return nil, d.handleDelete(msg.Keystroke())
	case "left", "right", "home", "end", "ctrl+a", "ctrl+e":
		d.handleCursor(msg.Keystroke())
		return nil, nil
	}
	if !d.inList && msg.Text != "" {
		for _, r := range msg.Text {
			d.input = append(d.input[:d.cursor], append([]rune{r}, d.input[d.cursor:]...)...)
			d.cursor++
		}
		d.seq++
		return nil, d.debounceCmd()
	}
	return nil, nil
}

func (d *Driver) handleEnter() (Action, tea.Cmd) {
	if len(d.items) == 0 {
		return nil, nil
	}
	idx := d.sel
	if idx >= len(d.items) {
		idx = 0
	}
	item := d.items[idx]
	return ActionCommit{Item: item}, d.ctrl.OnCommit(item)
}

func (d *Driver) handleNav(key string) {
	switch key {
	case "up":
		if d.inList {
			if d.sel > 0 {
				d.sel--
			} else {
				d.inList = false
			}
		}
	case "down":
		if !d.inList {
			if len(d.items) > 0 {
				d.inList = true
				d.sel = 0
			}
		} else if d.sel < len(d.items)-1 {
			d.sel++
		}
	}
}

func (d *Driver) handleDelete(key string) tea.Cmd {
	switch key {
	case "backspace":
		if d.cursor > 0 {
			d.input = append(d.input[:d.cursor-1], d.input[d.cursor:]...)
			d.cursor--
			d.seq++
			return d.debounceCmd()
		}
	case "delete":
		if d.cursor < len(d.input) {
			d.input = append(d.input[:d.cursor], d.input[d.cursor+1:]...)
			d.seq++
			return d.debounceCmd()
		}
	case "ctrl+u":
		d.input = d.input[d.cursor:]
		d.cursor = 0
		d.seq++
		return d.debounceCmd()
	case "ctrl+k":
		d.input = d.input[:d.cursor]
		d.seq++
		return d.debounceCmd()
	}
	return nil
}

func (d *Driver) handleCursor(key string) {
	if d.inList {
		return
	}
	switch key {
	case "left":
		if d.cursor > 0 {
			d.cursor--
		}
	case "right":
		if d.cursor < len(d.input) {
			d.cursor++
		}
	case "home", "ctrl+a":
		d.cursor = 0
	case "end", "ctrl+e":
		d.cursor = len(d.input)
	}
}

// Close notifies the controller of closure, per reason.
func (d *Driver) Close(reason CloseReason) { d.ctrl.OnClose(reason) }

// View renders the driver within the rect resolved from the controller's
// UiSpec, following modal.Model.View's box-and-list layout.
func (d *Driver) View(ctx Context) string {
	spec := d.ctrl.UiSpec(ctx)
	rect := spec.Policy.Resolve(ctx)
	w, h := rect.W, rect.H
	if w < 10 {
		w = 10
	}
	if h < 4 {
		h = 4
	}
	innerW := w - 4
	if innerW < 6 {
		innerW = 6
	}

	inputLine := d.renderInput()
	listHeight := h - 4 // border/title/input/divider chrome
	if listHeight < 1 {
		listHeight = 1
	}

	title := spec.Title
	if title == "" {
		title = d.ctrl.Name()
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(d.colors.Fg))
	titleLine := titleStyle.Render(title)

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(d.colors.Dim))
	divider := dimStyle.Render(strings.Repeat("─", innerW))
	content := titleLine + "\n" + inputLine + "\n" + divider
	for _, l := range d.renderList(innerW, listHeight) {
		content += "\n" + l
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(d.colors.Border)).
		Foreground(lipgloss.Color(d.colors.Fg)).
		Background(lipgloss.Color(d.colors.Bg)).
		Padding(0, 1).
		Width(w - 2).
		Render(content)
	return box
}

func (d *Driver) renderInput() string {
	if d.inList {
		return "> " + string(d.input)
	}
	before := string(d.input[:d.cursor])
	cursorChar := " "
	after := ""
	if d.cursor < len(d.input) {
		cursorChar = string(d.input[d.cursor])
		after = string(d.input[d.cursor+1:])
	}
	cursorStyle := lipgloss.NewStyle().Reverse(true)
	return "> " + before + cursorStyle.Render(cursorChar) + after
}

func (d *Driver) renderList(innerW, listHeight int) []string {
	scrollOff := 0
	if d.sel >= listHeight {
		scrollOff = d.sel - listHeight + 1
	}
	selStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(d.colors.SelFg)).
		Background(lipgloss.Color(d.colors.SelBg))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(d.colors.Dim))

	var lines []string
	for i := scrollOff; i < len(d.items) && len(lines) < listHeight; i++ {
		item := d.items[i]
		if i == d.sel && d.inList {
			lines = append(lines, selStyle.Render(padRight(item.Name, innerW)))
		} else {
			line := item.Name
			if item.Desc != "" {
				line += dimStyle.Render("  " + item.Desc)
			}
			lines = append(lines, padRight(line, innerW))
		}
	}
	for len(lines) < listHeight {
		lines = append(lines, strings.Repeat(" ", innerW))
	}
	return lines
}

func padRight(s string, w int) string {
	if len([]rune(s)) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len([]rune(s)))
}
