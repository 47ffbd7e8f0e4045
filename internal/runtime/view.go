// Grounded on _examples/sacenox-symb/internal/tui/view.go's Model.View:
// a full-screen tea.View over the rendered content, with the active
// overlay (if any) composited on top the way the teacher's fileModal
// replaces renderContent() wholesale while open.
package runtime

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"tome.dev/tome/internal/buffer"
	"tome.dev/tome/internal/highlight"
	"tome.dev/tome/internal/overlay"
	"tome.dev/tome/internal/uistate"
)

// View renders the current frame, satisfying tea.Model.
func (r *Runtime) View() tea.View {
	v := tea.NewView(r.renderContent())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	return v
}

func (r *Runtime) renderContent() string {
	if r.screenW == 0 || r.screenH == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(r.renderBuffer())

	if r.activeOverlay != nil {
		ctx := overlay.Context{ScreenW: r.screenW, ScreenH: r.screenH}
		overlayView := r.activeOverlay.View(ctx)
		return compositeCenter(b.String(), overlayView, r.screenW, r.screenH)
	}

	return b.String()
}

// renderBuffer draws the focused buffer's content with syntax
// highlighting and a status line, the left-pane analog of the teacher's
// renderEditorRow loop, simplified to a single full-width pane since tome
// has no chat sidebar.
func (r *Runtime) renderBuffer() string {
	buf, err := r.Buffers.FocusedBuffer()
	if err != nil || buf == nil {
		return ""
	}
	doc, err := r.Buffers.GetDocument(buf.DocID)
	if err != nil {
		return ""
	}

	theme := r.Theme
	if theme == "" {
		theme = "vulcan"
	}
	bgHex := highlight.ThemeBg(theme)
	rendered := highlight.Highlight(doc.Content.String(), doc.LanguageID, theme, bgHex)
	lines := highlight.SplitLines(rendered)

	contentH := r.screenH - 1
	if contentH < 0 {
		contentH = 0
	}

	var b strings.Builder
	for row := 0; row < contentH; row++ {
		if row < len(lines) {
			line := lines[row]
			if lw := lipgloss.Width(line); lw > r.screenW {
				line = ansi.Truncate(line, r.screenW, "")
			}
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}

	b.WriteString(r.renderStatusLine(buf, doc))
	return b.String()
}

func (r *Runtime) renderStatusLine(buf *buffer.Buffer, doc *buffer.Document) string {
	name := doc.DisplayName()
	mode := r.Keys.Mode().String()
	modified := ""
	if doc.Modified {
		modified = " [+]"
	}
	style := lipgloss.NewStyle().Reverse(true)
	line := style.Render(name + modified + "  " + mode)
	if toast, ok := r.topToast(); ok {
		line += "  " + toastStyle(toast.Level).Render(toast.Message)
	}
	return line
}

// topToast returns the most recently pushed status-line toast, if any;
// only one toast is shown at a time since the status line is a single row.
func (r *Runtime) topToast() (uistate.Toast, bool) {
	stack := r.Toasts.Stack(overlay.RoleStatusLine)
	if len(stack) == 0 {
		return uistate.Toast{}, false
	}
	return stack[len(stack)-1], true
}

func toastStyle(level uistate.NotifyLevel) lipgloss.Style {
	switch level {
	case uistate.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	case uistate.LevelWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#87afff"))
	}
}

func compositeCenter(base, overlayView string, screenW, screenH int) string {
	baseLines := strings.Split(base, "\n")
	overlayLines := strings.Split(overlayView, "\n")
	overlayW, overlayH := lipgloss.Width(overlayView), len(overlayLines)

	top := (screenH - overlayH) / 2
	if top < 0 {
		top = 0
	}
	left := (screenW - overlayW) / 2
	if left < 0 {
		left = 0
	}

	out := make([]string, len(baseLines))
	copy(out, baseLines)
	for i, ol := range overlayLines {
		row := top + i
		if row < 0 || row >= len(out) {
			continue
		}
		line := out[row]
		padded := line
		if w := lipgloss.Width(line); w < left {
			padded = line + strings.Repeat(" ", left-w)
		}
		prefix := ansi.Truncate(padded, left, "")
		out[row] = prefix + ol
	}
	return strings.Join(out, "\n")
}
