package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

var errBoom = errors.New("server unavailable")

type reply struct {
	regions []model.Region
	err     error
}

type call struct {
	src   string
	ctx   context.Context
	reply chan reply
}

// fakeFetcher hands every call to the test, which answers it explicitly
type fakeFetcher struct {
	calls chan *call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *call, 16)}
}

func (f *fakeFetcher) FetchRegions(ctx context.Context, src string) ([]model.Region, error) {
	c := &call{src: src, ctx: ctx, reply: make(chan reply, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.regions, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a fetch call")
		return nil
	}
}

// chanPoster stands in for the event loop
type chanPoster chan func()

func (p chanPoster) Post(fn func()) bool {
	p <- fn
	return true
}

func (p chanPoster) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-p:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a posted completion")
	}
}

var gridMeasurer = autosize.MeasurerFunc(func(lines []string, size float64, vertical bool) (float64, float64) {
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
})

type fixture struct {
	h      *surface.Headless
	f      *fakeFetcher
	poster chanPoster
	c      *Controller
}

func newFixture(opts ...Option) *fixture {
	h := surface.NewHeadless(gridMeasurer, surface.WithViewport(model.Rect{Width: 1000, Height: 800}))
	f := newFakeFetcher()
	p := make(chanPoster, 16)
	return &fixture{h: h, f: f, poster: p, c: NewController(h, f, p, opts...)}
}

func loadedImage(id string) surface.Image {
	return surface.Image{
		ID:      id,
		Src:     "https://example.com/api/v1/manga/1/chapter/2/page/" + id,
		Natural: model.Size{Width: 800, Height: 1200},
	}
}

func twoLines() []model.Region {
	return []model.Region{
		{Text: "A", BBox: model.NewBBox(0, 0, 0.1, 0.05)},
		{Text: "B", BBox: model.NewBBox(0.11, 0, 0.1, 0.05)},
	}
}

func expectState(t *testing.T, c *Controller, id string, want overlay.State) {
	t.Helper()
	got, ok := c.State(id)
	if !ok {
		t.Fatalf("Expected %s to be tracked", id)
	}
	if got != want {
		t.Errorf("Expected state %v, got %v", want, got)
	}
}

func TestController_RendersFetchedRegions(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")
	fx.h.SetRect(img.ID, model.Rect{X: 10, Y: 20, Width: 400, Height: 600})

	fx.c.ImageDiscovered(img)
	expectState(t, fx.c, img.ID, overlay.Pending)

	call := fx.f.next(t)
	if call.src != img.Src {
		t.Errorf("Expected fetch for %s, got %s", img.Src, call.src)
	}
	call.reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)

	expectState(t, fx.c, img.ID, overlay.Rendered)
	ds, ok := fx.c.Dataset(img.ID)
	if !ok {
		t.Fatal("Expected a dataset")
	}
	if len(ds) != 1 {
		t.Fatalf("Expected the two lines to be clustered into one group, got %d entries", len(ds))
	}
	if !ds[0].Merged || ds[0].Text != "A"+model.ZeroWidthSeparator+"B" {
		t.Errorf("Unexpected group: %+v", ds[0])
	}

	ov, ok := fx.h.Overlay(img.ID)
	if !ok {
		t.Fatal("Expected an overlay")
	}
	boxes := ov.Boxes()
	if len(boxes) != 1 || boxes[0].Style.IsZero() {
		t.Errorf("Expected one autosized box, got %+v", boxes)
	}
	if ov.Size() != (model.Size{Width: 400, Height: 600}) {
		t.Errorf("Expected container sized to the image, got %+v", ov.Size())
	}
	if !ov.Visible() || !fx.c.Sync().Running() {
		t.Error("Expected a visible overlay with a running frame loop")
	}
	if _, ok := fx.c.Editor(img.ID); !ok {
		t.Error("Expected an editor for the rendered image")
	}
}

func TestController_MergeDisabled(t *testing.T) {
	fx := newFixture(WithMerge(false))
	img := loadedImage("img1")

	fx.c.ImageDiscovered(img)
	fx.f.next(t).reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)

	ds, _ := fx.c.Dataset(img.ID)
	if len(ds) != 2 {
		t.Fatalf("Expected regions unchanged, got %d", len(ds))
	}
	for _, r := range ds {
		if r.ID == "" {
			t.Error("Expected every region to get an ID")
		}
	}
}

func TestController_WaitsForLoad(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")
	unloaded := img
	unloaded.Natural = model.Size{}

	fx.c.ImageDiscovered(unloaded)
	expectState(t, fx.c, img.ID, overlay.Priming)
	if fx.c.Fetches() != 0 {
		t.Errorf("Expected no fetch before load, got %d", fx.c.Fetches())
	}

	fx.c.ImageLoaded(img)
	expectState(t, fx.c, img.ID, overlay.Pending)
	if fx.c.Fetches() != 1 {
		t.Errorf("Expected one fetch, got %d", fx.c.Fetches())
	}
}

func TestController_IneligibleImagesIgnored(t *testing.T) {
	fx := newFixture(WithEligibility(func(src string) bool {
		return strings.Contains(src, "/api/v1/manga/")
	}))

	img := loadedImage("img1")
	img.Src = "https://example.com/avatar.png"
	fx.c.ImageDiscovered(img)

	if _, ok := fx.c.State(img.ID); ok {
		t.Error("Expected ineligible image not to be tracked")
	}
	if fx.c.Fetches() != 0 {
		t.Error("Expected no fetch")
	}
}

func TestController_NoDuplicateFetches(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")

	fx.c.ImageDiscovered(img)
	fx.c.ImageDiscovered(img)
	fx.c.ImageLoaded(img)
	fx.c.Retrigger(img)

	if fx.c.Fetches() != 1 {
		t.Fatalf("Expected exactly one fetch while pending, got %d", fx.c.Fetches())
	}

	fx.f.next(t).reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)

	fx.c.Retrigger(img)
	fx.c.ImageLoaded(img)
	if fx.c.Fetches() != 1 {
		t.Errorf("Expected rendered image not to be fetched again, got %d", fx.c.Fetches())
	}
}

func TestController_FailureAllowsOneRetry(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")

	fx.c.ImageDiscovered(img)
	fx.f.next(t).reply <- reply{err: errBoom}
	fx.poster.runNext(t)

	expectState(t, fx.c, img.ID, overlay.Unmanaged)
	if _, ok := fx.c.Dataset(img.ID); ok {
		t.Error("Expected no dataset after failure")
	}
	if _, ok := fx.h.Overlay(img.ID); ok {
		t.Error("Expected no overlay after failure")
	}
	if fx.c.Failures() != 1 {
		t.Errorf("Expected 1 failure, got %d", fx.c.Failures())
	}

	fx.c.Retrigger(img)
	fx.c.Retrigger(img)
	if fx.c.Fetches() != 2 {
		t.Fatalf("Expected exactly one retry, got %d fetches", fx.c.Fetches())
	}

	fx.f.next(t).reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)
	expectState(t, fx.c, img.ID, overlay.Rendered)
}

func TestController_RetriesWhenImageReentersView(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")
	fx.h.SetRect(img.ID, model.Rect{Y: 20, Width: 400, Height: 600})

	fx.c.ImageDiscovered(img)
	fx.f.next(t).reply <- reply{err: errBoom}
	fx.poster.runNext(t)
	expectState(t, fx.c, img.ID, overlay.Unmanaged)

	// Staying in view does not retry
	fx.h.SetRect(img.ID, model.Rect{Y: 40, Width: 400, Height: 600})
	if fx.c.Fetches() != 1 {
		t.Fatalf("Expected no retry while in view, got %d fetches", fx.c.Fetches())
	}

	fx.h.Scroll(10000)
	if fx.c.Fetches() != 1 {
		t.Fatalf("Expected no retry on leaving view, got %d fetches", fx.c.Fetches())
	}
	fx.h.Scroll(-10000)
	if fx.c.Fetches() != 2 {
		t.Fatalf("Expected a retry on re-entering view, got %d fetches", fx.c.Fetches())
	}
	expectState(t, fx.c, img.ID, overlay.Pending)

	fx.f.next(t).reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)
	expectState(t, fx.c, img.ID, overlay.Rendered)

	// The retry watch ended with the fetch
	fx.h.Scroll(10000)
	fx.h.Scroll(-10000)
	if fx.c.Fetches() != 2 {
		t.Errorf("Expected no fetch for a rendered image, got %d", fx.c.Fetches())
	}
}

func TestController_RetryWatchEndsOnRemoval(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")
	fx.h.SetRect(img.ID, model.Rect{Width: 400, Height: 600})

	fx.c.ImageDiscovered(img)
	fx.f.next(t).reply <- reply{err: errBoom}
	fx.poster.runNext(t)
	if !fx.h.Observed(img.ID) {
		t.Fatal("Expected the failed image to be watched")
	}

	fx.c.ImageRemoved(img.ID)
	if fx.h.Observed(img.ID) {
		t.Error("Expected removal to end the watch")
	}
}

func TestController_StaleCompletionAfterRemoval(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")

	fx.c.ImageDiscovered(img)
	call := fx.f.next(t)

	fx.c.ImageRemoved(img.ID)
	if call.ctx.Err() == nil {
		t.Error("Expected the fetch context to be cancelled")
	}

	call.reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)

	if _, ok := fx.c.State(img.ID); ok {
		t.Error("Expected removed image to stay untracked")
	}
	if _, ok := fx.h.Overlay(img.ID); ok {
		t.Error("Expected no overlay for a removed image")
	}
}

func TestController_StaleCompletionAfterRediscovery(t *testing.T) {
	fx := newFixture()
	img := loadedImage("img1")

	fx.c.ImageDiscovered(img)
	first := fx.f.next(t)
	fx.c.NavigationOccurred()
	fx.c.ImageDiscovered(img)
	second := fx.f.next(t)

	first.reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)
	expectState(t, fx.c, img.ID, overlay.Pending)

	second.reply <- reply{regions: twoLines()[:1]}
	fx.poster.runNext(t)
	expectState(t, fx.c, img.ID, overlay.Rendered)

	ds, _ := fx.c.Dataset(img.ID)
	if len(ds) != 1 || ds[0].Text != "A" {
		t.Errorf("Expected the second fetch's dataset, got %+v", ds)
	}
}

func TestController_NavigationDisposesEverything(t *testing.T) {
	fx := newFixture()
	for _, id := range []string{"img1", "img2"} {
		img := loadedImage(id)
		fx.h.SetRect(id, model.Rect{Y: 10, Width: 300, Height: 400})
		fx.c.ImageDiscovered(img)
		fx.f.next(t).reply <- reply{regions: twoLines()}
		fx.poster.runNext(t)
	}
	ov, _ := fx.h.Overlay("img1")

	fx.c.NavigationOccurred()

	if len(fx.c.Tracked()) != 0 {
		t.Errorf("Expected no tracked images, got %v", fx.c.Tracked())
	}
	if !ov.Destroyed() {
		t.Error("Expected overlays to be destroyed")
	}
	if fx.c.Sync().Running() {
		t.Error("Expected the frame loop to stop")
	}
	if fx.h.Observed("img1") {
		t.Error("Expected subscriptions to end")
	}
	if _, ok := fx.c.Editor("img1"); ok {
		t.Error("Expected editors to be dropped")
	}
}

func TestController_EditsThroughEditorSource(t *testing.T) {
	fx := newFixture(WithMerge(false))
	img := loadedImage("img1")
	fx.h.SetRect(img.ID, model.Rect{Width: 1000, Height: 1000})

	fx.c.ImageDiscovered(img)
	fx.f.next(t).reply <- reply{regions: twoLines()}
	fx.poster.runNext(t)

	e, ok := fx.c.Editors()(img.ID)
	if !ok {
		t.Fatal("Expected an editor")
	}
	ds, _ := fx.c.Dataset(img.ID)
	e.Toggle(ds[0].ID)
	e.Toggle(ds[1].ID)
	if _, ok := e.Finalize(); !ok {
		t.Fatal("Expected merge")
	}

	after, _ := fx.c.Dataset(img.ID)
	if len(after) != 1 {
		t.Errorf("Expected merged dataset, got %d entries", len(after))
	}
}
