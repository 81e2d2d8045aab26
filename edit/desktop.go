package edit

import (
	"sort"

	"github.com/tsawler/ocroverlay/model"
)

// EditorSource looks up the editor for a rendered image.
type EditorSource func(imageID string) (*Editor, bool)

// Desktop is the keyboard-and-mouse presentation. Holding the merge key and
// clicking boxes builds a selection of any size, which is merged when the
// key is released. Clicking with the delete key held removes a box.
type Desktop struct {
	mergeKey  Modifier
	deleteKey Modifier
	editors   EditorSource

	editMode bool
	active   map[string]bool
}

// NewDesktop creates the desktop presentation.
func NewDesktop(mergeKey, deleteKey Modifier, editors EditorSource) *Desktop {
	return &Desktop{
		mergeKey:  mergeKey,
		deleteKey: deleteKey,
		editors:   editors,
		active:    make(map[string]bool),
	}
}

// EditMode reports whether an edit key is held.
func (d *Desktop) EditMode() bool {
	return d.editMode
}

// KeyDown enters edit mode when the merge or delete key goes down.
func (d *Desktop) KeyDown(key string) {
	k, err := ParseModifier(key)
	if err != nil {
		return
	}
	if k == d.mergeKey || k == d.deleteKey {
		d.editMode = true
	}
}

// KeyUp finalizes every pending selection when the merge key is released and
// returns the groups it created.
func (d *Desktop) KeyUp(key string) []model.Region {
	k, err := ParseModifier(key)
	if err != nil {
		return nil
	}

	var groups []model.Region
	if k == d.mergeKey {
		ids := make([]string, 0, len(d.active))
		for id := range d.active {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if e, ok := d.editors(id); ok {
				if g, ok := e.Finalize(); ok {
					groups = append(groups, g)
				}
			}
		}
		d.active = make(map[string]bool)
	}
	if k == d.mergeKey || k == d.deleteKey {
		d.editMode = false
	}
	return groups
}

// Blur leaves edit mode when the window loses focus. Pending selections are
// kept until the merge key is released.
func (d *Desktop) Blur() {
	d.editMode = false
}

// Click handles a click on a box with the given modifiers held. The delete
// key takes precedence over the merge key.
func (d *Desktop) Click(imageID, boxID string, held Modifier) {
	e, ok := d.editors(imageID)
	if !ok {
		return
	}
	switch {
	case held.Has(d.deleteKey):
		e.Delete(boxID)
	case held.Has(d.mergeKey):
		e.Toggle(boxID)
		if len(e.Selection()) > 0 {
			d.active[imageID] = true
		} else {
			delete(d.active, imageID)
		}
	}
}
