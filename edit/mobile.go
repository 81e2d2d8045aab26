package edit

import "github.com/tsawler/ocroverlay/model"

// Mobile is the touch presentation. Edits happen only in edit mode, on the
// focused image. The first tap selects a box; tapping it again deselects it,
// and tapping a second box merges the two straight away.
type Mobile struct {
	editors  EditorSource
	focused  string
	editMode bool
}

// NewMobile creates the touch presentation.
func NewMobile(editors EditorSource) *Mobile {
	return &Mobile{editors: editors}
}

// Focus makes an image the target of edits, leaving edit mode on the
// previous one.
func (m *Mobile) Focus(imageID string) {
	if imageID == m.focused {
		return
	}
	m.exitEditMode()
	m.focused = imageID
}

// Focused returns the focused image ID.
func (m *Mobile) Focused() string {
	return m.focused
}

// EditMode reports whether edit mode is on.
func (m *Mobile) EditMode() bool {
	return m.editMode
}

// ToggleEditMode switches edit mode for the focused image. Leaving edit mode
// drops the selection. It reports the new mode.
func (m *Mobile) ToggleEditMode() bool {
	if m.focused == "" {
		return false
	}
	if m.editMode {
		m.exitEditMode()
		return false
	}
	m.editMode = true
	return true
}

// Tap handles a tap on a box of the focused image. It returns the merged
// group when the tap completed a merge.
func (m *Mobile) Tap(boxID string) (model.Region, bool) {
	if !m.editMode {
		return model.Region{}, false
	}
	e, ok := m.editors(m.focused)
	if !ok {
		return model.Region{}, false
	}

	sel := e.Selection()
	switch {
	case len(sel) == 0:
		e.Toggle(boxID)
		return model.Region{}, false
	case sel[0] == boxID:
		e.Clear()
		return model.Region{}, false
	default:
		if !e.Toggle(boxID) {
			return model.Region{}, false
		}
		return e.Finalize()
	}
}

// DeleteSelected deletes the selected box and leaves edit mode.
func (m *Mobile) DeleteSelected() bool {
	if !m.editMode {
		return false
	}
	e, ok := m.editors(m.focused)
	if !ok {
		return false
	}
	sel := e.Selection()
	if len(sel) == 0 {
		return false
	}
	deleted := e.Delete(sel[0])
	m.exitEditMode()
	return deleted
}

func (m *Mobile) exitEditMode() {
	if m.editMode {
		if e, ok := m.editors(m.focused); ok {
			e.Clear()
		}
	}
	m.editMode = false
}
