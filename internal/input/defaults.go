package input

// DefaultKeymap returns the baseline bindings shipped before any user
// override is loaded (see spec.md §6's keymap persistence format). Action
// names mirror the registry's action ids (component N) rather than encoding
// behavior here; Handler only resolves which action fired.
func DefaultKeymap() *Keymap {
	k := NewKeymap()

	// Global, mode-independent-feeling bindings the teacher also treats as
	// always-on (ctrl+c quit, ctrl+s save), ported from update_keypress.go's
	// keyPressHandlers map.
	for _, m := range []Mode{ModeNormal, ModeInsert, ModeWindow, ModePendingAction} {
		k.Bind(m, []string{"ctrl+c"}, "app.quit")
		k.Bind(m, []string{"ctrl+s"}, "buffer.save")
		k.Bind(m, []string{"esc"}, "mode.to_normal")
	}

	// Normal mode: movement, editing entry points, and overlay launches.
	k.Bind(ModeNormal, []string{"i"}, "mode.to_insert")
	k.Bind(ModeNormal, []string{"a"}, "mode.to_insert_after")
	k.Bind(ModeNormal, []string{"v"}, "selection.start_char")
	k.Bind(ModeNormal, []string{"V"}, "selection.start_line")
	k.Bind(ModeNormal, []string{"h"}, "cursor.left")
	k.Bind(ModeNormal, []string{"l"}, "cursor.right")
	k.Bind(ModeNormal, []string{"j"}, "cursor.down")
	k.Bind(ModeNormal, []string{"k"}, "cursor.up")
	k.Bind(ModeNormal, []string{"w"}, "cursor.word_forward")
	k.Bind(ModeNormal, []string{"b"}, "cursor.word_backward")
	k.Bind(ModeNormal, []string{"0"}, "cursor.line_start")
	k.Bind(ModeNormal, []string{"$"}, "cursor.line_end")
	// "g" alone is a sticky default: pressing it and pausing commits
	// cursor.doc_start (matching "gg"), but a following "e" instead resolves
	// the longer "g e" binding to cursor.doc_end.
	k.Bind(ModeNormal, []string{"g"}, "cursor.doc_start")
	k.Bind(ModeNormal, []string{"g", "g"}, "cursor.doc_start")
	k.Bind(ModeNormal, []string{"g", "e"}, "cursor.doc_end")
	k.Bind(ModeNormal, []string{"G"}, "cursor.doc_end")
	k.Bind(ModeNormal, []string{"x"}, "edit.delete_char")
	k.Bind(ModeNormal, []string{"d", "d"}, "edit.delete_line")
	k.Bind(ModeNormal, []string{"d", "w"}, "edit.delete_word")
	k.Bind(ModeNormal, []string{"y", "y"}, "edit.yank_line")
	k.Bind(ModeNormal, []string{"p"}, "edit.paste_after")
	k.Bind(ModeNormal, []string{"u"}, "undo.undo")
	k.Bind(ModeNormal, []string{"ctrl+r"}, "undo.redo")
	k.Bind(ModeNormal, []string{"ctrl+f"}, "overlay.open_file_picker")
	k.Bind(ModeNormal, []string{"ctrl+p"}, "overlay.open_command_palette")
	k.Bind(ModeNormal, []string{"ctrl+h"}, "overlay.open_keybinds")
	k.Bind(ModeNormal, []string{"ctrl+w"}, "mode.to_window")
	k.Bind(ModeNormal, []string{" ", "c", "a"}, "lsp.code_action")
	k.Bind(ModeNormal, []string{" ", "r", "n"}, "lsp.rename")
	k.Bind(ModeNormal, []string{" ", "g", "d"}, "lsp.goto_definition")

	// Window mode: split navigation/creation, entered via ctrl+w and
	// returning to Normal automatically after one keystroke.
	k.Bind(ModeWindow, []string{"h"}, "window.focus_left")
	k.Bind(ModeWindow, []string{"l"}, "window.focus_right")
	k.Bind(ModeWindow, []string{"j"}, "window.focus_down")
	k.Bind(ModeWindow, []string{"k"}, "window.focus_up")
	k.Bind(ModeWindow, []string{"s"}, "window.split_horizontal")
	k.Bind(ModeWindow, []string{"v"}, "window.split_vertical")
	k.Bind(ModeWindow, []string{"q"}, "window.close")

	// Insert mode: only the small set of control sequences Handler routes
	// through the keymap at all (see Handler.Feed); everything else is
	// literal text.
	k.Bind(ModeInsert, []string{"tab"}, "edit.indent_or_complete")
	k.Bind(ModeInsert, []string{"backspace"}, "edit.backspace")
	k.Bind(ModeInsert, []string{"enter"}, "edit.newline")

	return k
}
