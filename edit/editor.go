package edit

import (
	"strings"

	"github.com/tsawler/ocroverlay/internal/logging"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// Editor applies delete and merge edits to one record's dataset. Entries are
// addressed by ID.
type Editor struct {
	record    *overlay.Record
	surface   surface.Surface
	renderer  overlay.Renderer
	separator string
	log       *logging.Logger

	selection []string
}

// NewEditor creates an editor for a rendered record. separator joins merged
// text.
func NewEditor(r *overlay.Record, s surface.Surface, rd overlay.Renderer, separator string, log *logging.Logger) *Editor {
	if log == nil {
		log = logging.Discard()
	}
	return &Editor{record: r, surface: s, renderer: rd, separator: separator, log: log}
}

// ImageID returns the ID of the edited image.
func (e *Editor) ImageID() string {
	return e.record.Image.ID
}

// live reports whether the record can still be edited.
func (e *Editor) live() bool {
	return e.record.State == overlay.Rendered
}

// Delete removes an entry from the dataset and the overlay. It reports
// whether the entry existed.
func (e *Editor) Delete(id string) bool {
	if !e.live() || e.record.Dataset.Index(id) < 0 {
		return false
	}
	e.record.Dataset = e.record.Dataset.Remove(id)
	delete(e.record.Styles, id)
	if e.record.Overlay != nil {
		e.record.Overlay.Remove(id)
	}
	e.unselect(id)
	e.log.Debug("deleted entry", "image", e.ImageID(), "entry", id)
	return true
}

// Toggle adds an entry to the merge selection, or removes it if it is already
// selected. It reports whether the entry is selected afterwards.
func (e *Editor) Toggle(id string) bool {
	if !e.live() || e.record.Dataset.Index(id) < 0 {
		return false
	}
	if e.unselect(id) {
		return false
	}
	e.selection = append(e.selection, id)
	e.highlight(id, true)
	return true
}

// Selection returns the selected entry IDs in selection order.
func (e *Editor) Selection() []string {
	return append([]string(nil), e.selection...)
}

// Clear empties the selection without editing the dataset.
func (e *Editor) Clear() {
	for _, id := range e.selection {
		e.highlight(id, false)
	}
	e.selection = nil
}

// Finalize merges the selection into one group. With fewer than two selected
// entries it only clears the selection. The group's text follows selection
// order, its box is the union of the members' boxes, and it is vertical only
// if every member was rendered vertically.
func (e *Editor) Finalize() (model.Region, bool) {
	selected := e.selection
	e.Clear()
	if len(selected) < 2 || !e.live() {
		return model.Region{}, false
	}

	texts := make([]string, 0, len(selected))
	boxes := make([]model.BBox, 0, len(selected))
	allVertical := true
	for _, id := range selected {
		reg, ok := e.record.Dataset.Get(id)
		if !ok {
			continue
		}
		texts = append(texts, reg.Text)
		boxes = append(boxes, reg.BBox)
		if !e.renderedVertical(reg) {
			allVertical = false
		}
	}
	if len(texts) < 2 {
		return model.Region{}, false
	}

	orientation := model.OrientationHorizontal
	if allVertical {
		orientation = model.OrientationVertical
	}
	group := model.Region{
		ID:                model.NewID(),
		Text:              strings.Join(texts, e.separator),
		BBox:              model.UnionAll(boxes...),
		Merged:            true,
		ForcedOrientation: orientation,
	}

	e.record.Dataset = append(e.record.Dataset.Remove(selected...), group)
	for _, id := range selected {
		delete(e.record.Styles, id)
		if e.record.Overlay != nil {
			e.record.Overlay.Remove(id)
		}
	}

	if rect, ok := e.surface.Rect(e.ImageID()); ok && !rect.Size().IsZero() {
		e.renderer.Place(e.record, group, rect)
		e.renderer.Autosize(e.record, group.ID)
	}
	e.log.Debug("merged entries", "image", e.ImageID(), "members", len(texts), "group", group.ID)
	return group, true
}

// renderedVertical reports whether an entry is currently laid out in columns.
// Entries not styled yet fall back to their forced orientation, then to the
// shape of their box.
func (e *Editor) renderedVertical(reg model.Region) bool {
	if res, ok := e.record.Styles[reg.ID]; ok {
		return res.Vertical
	}
	switch reg.ForcedOrientation {
	case model.OrientationVertical:
		return true
	case model.OrientationHorizontal:
		return false
	default:
		return reg.IsVertical()
	}
}

func (e *Editor) unselect(id string) bool {
	for i, sid := range e.selection {
		if sid == id {
			e.selection = append(e.selection[:i:i], e.selection[i+1:]...)
			e.highlight(id, false)
			return true
		}
	}
	return false
}

func (e *Editor) highlight(id string, on bool) {
	if e.record.Overlay != nil {
		e.record.Overlay.Highlight(id, on)
	}
}
