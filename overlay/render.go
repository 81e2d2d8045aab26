package overlay

import (
	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
)

// Renderer lays out a record's dataset on its overlay.
type Renderer struct {
	Policy   autosize.Policy
	Measurer autosize.Measurer
}

// Layout sizes the container to rect and places every box. Boxes track the
// container size, the way percentage positioning would.
func (rd Renderer) Layout(r *Record, rect model.Rect) {
	if r.Overlay == nil {
		return
	}
	r.Overlay.SetSize(rect.Size())
	for _, reg := range r.Dataset {
		r.Overlay.Place(reg, rect.Project(reg.BBox))
	}
}

// Place adds or repositions one entry's box.
func (rd Renderer) Place(r *Record, reg model.Region, rect model.Rect) {
	if r.Overlay == nil {
		return
	}
	r.Overlay.Place(reg, rect.Project(reg.BBox))
}

// Autosize fits one entry's text to its box and applies the result.
func (rd Renderer) Autosize(r *Record, id string) autosize.Result {
	if r.Overlay == nil {
		return autosize.Result{}
	}
	reg, ok := r.Dataset.Get(id)
	if !ok {
		return autosize.Result{}
	}
	size, ok := r.Overlay.BoxSize(id)
	if !ok {
		return autosize.Result{}
	}
	res := autosize.Fit(reg.Text, size.Width, size.Height, reg.Merged, reg.ForcedOrientation, rd.Policy, rd.Measurer)
	if res.IsZero() {
		return res
	}
	if r.Styles == nil {
		r.Styles = make(map[string]autosize.Result)
	}
	r.Styles[id] = res
	r.Overlay.Style(id, res)
	return res
}

// AutosizeAll fits every entry and records the size it ran for.
func (rd Renderer) AutosizeAll(r *Record, size model.Size) {
	for _, reg := range r.Dataset {
		rd.Autosize(r, reg.ID)
	}
	r.SetLastRenderedSize(size)
}
