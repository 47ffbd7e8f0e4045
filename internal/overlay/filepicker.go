package overlay

import (
	tea "charm.land/bubbletea/v2"

	"tome.dev/tome/internal/pathutil"
)

// FilePickerController fuzzy-filters a project's file list, grounded on
// _examples/sacenox-symb/internal/filesearch's filename-search mode, with
// the regex matcher replaced by internal/pathutil's fuzzy scorer.
type FilePickerController struct {
	candidates []string
	onOpenFile func(path string) tea.Cmd
	driver     *Driver
}

// NewFilePickerController builds a controller over root's file tree.
func NewFilePickerController(root string, onOpenFile func(path string) tea.Cmd) (*FilePickerController, error) {
	files, err := pathutil.WalkProject(root)
	if err != nil {
		return nil, err
	}
	return &FilePickerController{candidates: files, onOpenFile: onOpenFile}, nil
}

func (c *FilePickerController) Name() string { return "file_picker" }

func (c *FilePickerController) UiSpec(ctx Context) UiSpec {
	return UiSpec{Policy: TopCenter(60, 100, 30, 0.1, 20), Title: "Open File"}
}

func (c *FilePickerController) OnOpen() tea.Cmd {
	if c.driver != nil {
		c.driver.SetItems(c.search(""))
	}
	return nil
}

func (c *FilePickerController) OnInputChanged(query string) tea.Cmd {
	if c.driver != nil {
		c.driver.SetItems(c.search(query))
	}
	return nil
}

func (c *FilePickerController) search(query string) []Item {
	matches := pathutil.FuzzyFilter(query, c.candidates, 200)
	items := make([]Item, len(matches))
	for i, m := range matches {
		items[i] = Item{Name: m.Candidate, Data: m.Candidate}
	}
	return items
}

func (c *FilePickerController) OnCommit(item Item) tea.Cmd {
	if c.onOpenFile == nil {
		return nil
	}
	path, _ := item.Data.(string)
	return c.onOpenFile(path)
}

func (c *FilePickerController) OnClose(reason CloseReason) {}

// AttachDriver lets the host wire the Driver back into the controller so
// search results can be pushed via Driver.SetItems from OnOpen/OnInputChanged
// without the controller owning the driver's lifecycle.
func (c *FilePickerController) AttachDriver(d *Driver) { c.driver = d }
