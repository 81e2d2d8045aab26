package ocroverlay

import (
	"errors"
	"fmt"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
	"github.com/tsawler/ocroverlay/config"
	"github.com/tsawler/ocroverlay/edit"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// ErrInvalidSize is returned by Layout for non-positive image dimensions.
var ErrInvalidSize = errors.New("ocroverlay: image size must be positive")

// Pipeline provides a fluent interface for clustering and laying out
// regions. Each configuration method returns a new Pipeline instance, making
// it safe for concurrent use and allowing method chaining.
type Pipeline struct {
	regions []model.Region
	options pipelineOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a copy of the Pipeline with a deep copy of options. The
// regions slice is shared; it is never modified.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		regions: p.regions,
		options: p.options.clone(),
		err:     p.err,
	}
}

// ============================================================================
// Configuration Methods (return new Pipeline instance)
// ============================================================================

// Merge enables automatic clustering (the default).
func (p *Pipeline) Merge() *Pipeline {
	newP := p.clone()
	newP.options.merge = true
	return newP
}

// NoMerge keeps the recognizer's regions as they are.
//
// Example:
//
//	layout, err := ocroverlay.FromRegions(r).NoMerge().Layout(800, 600)
func (p *Pipeline) NoMerge() *Pipeline {
	newP := p.clone()
	newP.options.merge = false
	return newP
}

// ClusterConfig sets the clustering thresholds. An invalid configuration
// fails the terminal operation.
func (p *Pipeline) ClusterConfig(cfg cluster.Config) *Pipeline {
	newP := p.clone()
	if err := cfg.Validate(); err != nil && newP.err == nil {
		newP.err = err
	}
	newP.options.cluster = cfg
	return newP
}

// Policy sets the font fitting policy.
func (p *Pipeline) Policy(policy autosize.Policy) *Pipeline {
	newP := p.clone()
	if err := policy.Validate(); err != nil && newP.err == nil {
		newP.err = err
	}
	newP.options.policy = policy
	return newP
}

// Measurer sets how text is measured. The default measures with the Go
// Regular font.
func (p *Pipeline) Measurer(m autosize.Measurer) *Pipeline {
	newP := p.clone()
	newP.options.measurer = m
	return newP
}

// Settings applies the clustering, merge and autosizing preferences of s.
//
// Example:
//
//	s, err := config.Load("settings.json", ".env")
//	layout, err := ocroverlay.FromRegions(r).Settings(s).Layout(w, h)
func (p *Pipeline) Settings(s config.Settings) *Pipeline {
	newP := p.ClusterConfig(s.ClusterConfig()).Policy(s.AutosizePolicy())
	newP.options.merge = s.AutoMergeEnabled
	return newP
}

// Delete removes entries from the laid-out dataset. Unknown IDs are
// ignored.
func (p *Pipeline) Delete(ids ...string) *Pipeline {
	newP := p.clone()
	newP.options.edits = append(newP.options.edits, editOp{kind: editDelete, ids: append([]string(nil), ids...)})
	return newP
}

// MergeIDs merges entries of the laid-out dataset the way a user selection
// would: text is joined in the order given and the group replaces its
// members. Fewer than two known IDs leave the dataset unchanged.
//
// Example:
//
//	layout, err := ocroverlay.FromRegions(r).NoMerge().MergeIDs(a, b).Layout(w, h)
func (p *Pipeline) MergeIDs(ids ...string) *Pipeline {
	newP := p.clone()
	newP.options.edits = append(newP.options.edits, editOp{kind: editMerge, ids: append([]string(nil), ids...)})
	return newP
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Regions returns the dataset after clustering, without layout.
func (p *Pipeline) Regions() ([]model.Region, error) {
	res, err := p.Cluster()
	if err != nil {
		return nil, err
	}
	return res.Regions, nil
}

// Cluster runs clustering and returns its statistics. With merging
// disabled the result holds the input unchanged.
func (p *Pipeline) Cluster() (*cluster.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	regions := append([]model.Region(nil), p.regions...)
	if !p.options.merge {
		return &cluster.Result{Regions: regions, Input: len(regions), Config: p.options.cluster}, nil
	}
	return cluster.NewDetectorWithConfig(p.options.cluster).Detect(regions), nil
}

// Box is one laid-out entry.
type Box struct {
	Region model.Region `json:"region"`

	// Rect is the box in image pixels
	Rect model.Rect `json:"rect"`

	// FontSize is the fitted font size in pixels; zero when nothing fits
	FontSize int  `json:"fontSize"`
	Vertical bool `json:"vertical"`
}

// Layout is the result of laying out a dataset on an image.
type Layout struct {
	Size   model.Size `json:"size"`
	Boxes  []Box      `json:"boxes"`
	Input  int        `json:"input"`
	Groups int        `json:"groups"`
}

// Layout clusters the regions, places them on an image of the given size,
// fits every font and then applies the queued edits.
//
// Example:
//
//	layout, err := ocroverlay.FromRegions(r).Layout(800, 1200)
func (p *Pipeline) Layout(width, height float64) (*Layout, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %vx%v", ErrInvalidSize, width, height)
	}
	res, err := p.Cluster()
	if err != nil {
		return nil, err
	}

	m := p.options.measurer
	if m == nil {
		m = autosize.NewDefaultMeasurer()
	}
	h := surface.NewHeadless(m)
	img := surface.Image{ID: "image", Natural: model.Size{Width: width, Height: height}}
	rect := model.Rect{Width: width, Height: height}
	h.SetRect(img.ID, rect)

	ov, err := h.CreateOverlay(img)
	if err != nil {
		return nil, fmt.Errorf("creating overlay: %w", err)
	}
	rec := &overlay.Record{
		Image:   img,
		State:   overlay.Rendered,
		Overlay: ov,
		Dataset: model.Dataset(res.Regions),
	}
	rd := overlay.Renderer{Policy: p.options.policy, Measurer: m}
	rd.Layout(rec, rect)
	rd.AutosizeAll(rec, rect.Size())

	if len(p.options.edits) > 0 {
		ed := edit.NewEditor(rec, h, rd, p.options.cluster.Separator, nil)
		for _, op := range p.options.edits {
			switch op.kind {
			case editDelete:
				for _, id := range op.ids {
					ed.Delete(id)
				}
			case editMerge:
				for _, id := range op.ids {
					ed.Toggle(id)
				}
				ed.Finalize()
			}
		}
	}

	hov, _ := h.Overlay(img.ID)
	out := &Layout{Size: rect.Size(), Input: res.Input, Groups: res.Groups}
	for _, reg := range rec.Dataset {
		b := Box{Region: reg, Rect: rect.Project(reg.BBox)}
		if hb, ok := hov.Box(reg.ID); ok {
			b.Rect = hb.Box
		}
		if st, ok := rec.Styles[reg.ID]; ok {
			b.FontSize = st.FontSize
			b.Vertical = st.Vertical
		}
		out.Boxes = append(out.Boxes, b)
	}
	return out, nil
}
