package syncloop

import (
	"testing"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// countingMeasurer treats every rune as a one-em square and counts calls
type countingMeasurer struct {
	calls int
}

func (m *countingMeasurer) Measure(lines []string, size float64, vertical bool) (float64, float64) {
	m.calls++
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	if vertical {
		return size * float64(len(lines)), size * float64(longest)
	}
	return size * float64(longest), size * float64(len(lines))
}

type fixture struct {
	h     *surface.Headless
	store *overlay.Store
	loop  *Loop
	m     *countingMeasurer
	rd    overlay.Renderer
}

func newFixture() *fixture {
	m := &countingMeasurer{}
	h := surface.NewHeadless(m, surface.WithViewport(model.Rect{Width: 1000, Height: 800}))
	store := overlay.NewStore()
	rd := overlay.Renderer{Policy: autosize.DefaultPolicy(), Measurer: m}
	return &fixture{h: h, store: store, loop: New(h, store, rd), m: m, rd: rd}
}

// render puts an image into the Rendered state the way the controller does
func (f *fixture) render(t *testing.T, id string, rect model.Rect) *overlay.Record {
	t.Helper()
	img := surface.Image{ID: id, Natural: model.Size{Width: 800, Height: 1200}}
	f.h.SetRect(id, rect)

	r, err := f.store.Create(img)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ov, err := f.h.CreateOverlay(img)
	if err != nil {
		t.Fatalf("CreateOverlay failed: %v", err)
	}
	r.Overlay = ov
	r.State = overlay.Rendered
	r.Dataset = model.Dataset{{ID: id + "-a", Text: "abcd", BBox: model.NewBBox(0.1, 0.1, 0.5, 0.1)}}
	f.rd.Layout(r, rect)
	f.rd.AutosizeAll(r, rect.Size())
	f.loop.Track(r)
	return r
}

func headless(t *testing.T, r *overlay.Record) *surface.HeadlessOverlay {
	t.Helper()
	return r.Overlay.(*surface.HeadlessOverlay)
}

func TestLoop_StartsOnVisibilityAndFollowsScroll(t *testing.T) {
	f := newFixture()
	r := f.render(t, "img1", model.Rect{X: 100, Y: 50, Width: 400, Height: 600})

	if !f.loop.Running() {
		t.Fatal("Expected frame loop to start for a visible image")
	}
	if !headless(t, r).Visible() {
		t.Error("Expected overlay to be shown")
	}

	f.h.Tick()
	if got := headless(t, r).Origin(); got != (model.Point{X: 100, Y: 50}) {
		t.Errorf("Expected origin {100 50}, got %+v", got)
	}

	f.h.Scroll(30)
	f.h.Tick()
	if got := headless(t, r).Origin(); got != (model.Point{X: 100, Y: 20}) {
		t.Errorf("Expected origin {100 20} after scroll, got %+v", got)
	}
	if f.loop.Frames() != 2 {
		t.Errorf("Expected 2 frames, got %d", f.loop.Frames())
	}
}

func TestLoop_StopsWhenNothingVisible(t *testing.T) {
	f := newFixture()
	r := f.render(t, "img1", model.Rect{X: 0, Y: 0, Width: 400, Height: 600})

	// Scroll far past the image and the preload margin
	f.h.Scroll(2000)

	if f.loop.Running() {
		t.Error("Expected frame loop to stop")
	}
	if f.h.PendingFrames() != 0 {
		t.Errorf("Expected no pending frames, got %d", f.h.PendingFrames())
	}
	if headless(t, r).Visible() {
		t.Error("Expected overlay to be hidden")
	}

	// Coming back re-arms the loop
	f.h.Scroll(-2000)
	if !f.loop.Running() {
		t.Error("Expected frame loop to restart")
	}
	if n := f.h.Tick(); n != 1 {
		t.Errorf("Expected exactly one frame callback, got %d", n)
	}
}

func TestLoop_PreloadMargin(t *testing.T) {
	f := newFixture()
	// Just below the 800px viewport, inside the 100px margin
	f.render(t, "img1", model.Rect{X: 0, Y: 850, Width: 400, Height: 600})

	if got := f.loop.Visible(); len(got) != 1 {
		t.Errorf("Expected image in preload margin to count as visible, got %v", got)
	}
}

func TestLoop_SingleFramePerTick(t *testing.T) {
	f := newFixture()
	f.render(t, "img1", model.Rect{Width: 400, Height: 300})
	f.render(t, "img2", model.Rect{Y: 300, Width: 400, Height: 300})

	if n := f.h.PendingFrames(); n != 1 {
		t.Errorf("Expected one shared frame callback, got %d", n)
	}
}

func TestLoop_SizeChangedAutosizesOnlyOnChange(t *testing.T) {
	f := newFixture()
	r := f.render(t, "img1", model.Rect{Width: 400, Height: 600})
	before := f.m.calls

	// Observe reported the same size on subscription: no extra measuring
	if before == 0 {
		t.Fatal("Expected initial autosizing to measure")
	}

	if f.loop.SizeChanged("img1", model.Rect{X: 10, Width: 400, Height: 600}) {
		t.Error("Expected no autosizing for an unchanged size")
	}
	if f.m.calls != before {
		t.Errorf("Expected no measurements, got %d", f.m.calls-before)
	}

	f.h.SetRect("img1", model.Rect{Width: 200, Height: 300})
	if f.m.calls == before {
		t.Error("Expected autosizing after a size change")
	}
	if got, _ := r.LastRenderedSize(); got != (model.Size{Width: 200, Height: 300}) {
		t.Errorf("Expected last size 200x300, got %+v", got)
	}
	if got := headless(t, r).Size(); got != (model.Size{Width: 200, Height: 300}) {
		t.Errorf("Expected container 200x300, got %+v", got)
	}
	box, _ := headless(t, r).Box("img1-a")
	if box.Box.Width != 100 {
		t.Errorf("Expected box to follow container, got width %v", box.Box.Width)
	}
}

func TestLoop_SizeChangedIgnoresUnrendered(t *testing.T) {
	f := newFixture()
	f.store.Create(surface.Image{ID: "img1"})
	if f.loop.SizeChanged("img1", model.Rect{Width: 10, Height: 10}) {
		t.Error("Expected unrendered image to be ignored")
	}
	if f.loop.SizeChanged("missing", model.Rect{Width: 10, Height: 10}) {
		t.Error("Expected unknown image to be ignored")
	}
}

func TestLoop_DisposeUntracks(t *testing.T) {
	f := newFixture()
	f.render(t, "img1", model.Rect{Width: 400, Height: 600})

	f.store.Dispose("img1")

	if len(f.loop.Visible()) != 0 {
		t.Errorf("Expected empty visible set, got %v", f.loop.Visible())
	}
	if f.loop.Running() {
		t.Error("Expected frame loop to stop after disposal")
	}
	if f.h.Observed("img1") {
		t.Error("Expected surface subscription to end")
	}
}
