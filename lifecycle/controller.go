package lifecycle

import (
	"context"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
	"github.com/tsawler/ocroverlay/edit"
	"github.com/tsawler/ocroverlay/internal/logging"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
	"github.com/tsawler/ocroverlay/syncloop"
)

// Fetcher retrieves the recognized text regions for an image source. It is
// called on its own goroutine and must honor ctx.
type Fetcher interface {
	FetchRegions(ctx context.Context, src string) ([]model.Region, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, src string) ([]model.Region, error)

// FetchRegions calls f.
func (f FetcherFunc) FetchRegions(ctx context.Context, src string) ([]model.Region, error) {
	return f(ctx, src)
}

// Poster queues a function on the event loop goroutine. It reports false
// when the loop no longer accepts work. eventloop.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Controller drives every tracked image through its lifecycle. All event
// methods must be called from the event loop goroutine.
type Controller struct {
	surface  surface.Surface
	fetcher  Fetcher
	poster   Poster
	store    *overlay.Store
	sync     *syncloop.Loop
	renderer overlay.Renderer
	detector *cluster.Detector
	log      *logging.Logger

	ctx          context.Context
	mergeEnabled bool
	separator    string
	eligible     func(src string) bool
	scheduler    surface.FrameScheduler

	editors   map[string]*edit.Editor
	nextToken uint64
	fetches   int
	failures  int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithClusterConfig sets the clustering thresholds and the merge separator.
func WithClusterConfig(cfg cluster.Config) Option {
	return func(c *Controller) {
		c.detector = cluster.NewDetectorWithConfig(cfg)
		c.separator = cfg.Separator
	}
}

// WithMerge enables or disables automatic clustering of fetched regions
// (default: enabled)
func WithMerge(enabled bool) Option {
	return func(c *Controller) {
		c.mergeEnabled = enabled
	}
}

// WithPolicy sets the autosizing policy.
func WithPolicy(p autosize.Policy) Option {
	return func(c *Controller) {
		c.renderer.Policy = p
	}
}

// WithEligibility sets the predicate an image source must satisfy to be
// tracked. By default every image with a source is eligible.
func WithEligibility(fn func(src string) bool) Option {
	return func(c *Controller) {
		c.eligible = fn
	}
}

// WithScheduler overrides the frame scheduler used by the sync loop.
func WithScheduler(s surface.FrameScheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithContext sets the parent context of every fetch. Cancelling it cancels
// all in-flight fetches.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

// NewController creates a controller rendering onto s, fetching with f and
// delivering fetch completions through p.
func NewController(s surface.Surface, f Fetcher, p Poster, opts ...Option) *Controller {
	cfg := cluster.DefaultConfig()
	c := &Controller{
		surface:      s,
		fetcher:      f,
		poster:       p,
		store:        overlay.NewStore(),
		renderer:     overlay.Renderer{Policy: autosize.DefaultPolicy(), Measurer: s.Measurer()},
		detector:     cluster.NewDetectorWithConfig(cfg),
		log:          logging.Discard(),
		ctx:          context.Background(),
		mergeEnabled: true,
		separator:    cfg.Separator,
		eligible:     func(src string) bool { return src != "" },
		scheduler:    s,
		editors:      make(map[string]*edit.Editor),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sync = syncloop.New(s, c.store, c.renderer,
		syncloop.WithScheduler(c.scheduler),
		syncloop.WithLogger(c.log.Named("sync")))
	return c
}

// ImageDiscovered starts tracking an eligible image. A discovered image that
// has already loaded is fetched straight away.
func (c *Controller) ImageDiscovered(img surface.Image) {
	if !c.eligible(img.Src) {
		return
	}
	r, ok := c.store.Get(img.ID)
	if !ok {
		var err error
		if r, err = c.store.Create(img); err != nil {
			c.log.Error("failed to track image", "image", img.ID, "error", err)
			return
		}
		c.log.Debug("image discovered", "image", img.ID, "src", img.Src)
	}
	if r.State == overlay.Unmanaged {
		c.transition(r, overlay.Priming)
	}
	if img.Loaded() {
		c.ImageLoaded(img)
	}
}

// ImageLoaded reports that an image has its intrinsic size. A primed image
// moves to Pending and one fetch is issued.
func (c *Controller) ImageLoaded(img surface.Image) {
	r, ok := c.store.Get(img.ID)
	if !ok {
		c.ImageDiscovered(img)
		return
	}
	if !img.Loaded() || r.State != overlay.Priming {
		return
	}
	r.Image = img
	c.startFetch(r)
}

// Retrigger retries an image whose last fetch failed. The controller calls it
// itself when a failed image re-enters the viewport. Images that are pending
// or rendered are left alone.
func (c *Controller) Retrigger(img surface.Image) {
	r, ok := c.store.Get(img.ID)
	if !ok {
		c.ImageDiscovered(img)
		return
	}
	switch r.State {
	case overlay.Unmanaged:
		if !img.Loaded() {
			c.transition(r, overlay.Priming)
			return
		}
		r.Image = img
		c.startFetch(r)
	case overlay.Priming:
		c.ImageLoaded(img)
	}
}

// ImageRemoved disposes an image's record. A fetch still in flight for it is
// cancelled and its completion is dropped.
func (c *Controller) ImageRemoved(imageID string) {
	delete(c.editors, imageID)
	if c.store.Dispose(imageID) {
		c.log.Debug("image removed", "image", imageID)
	}
}

// NavigationOccurred disposes every record.
func (c *Controller) NavigationOccurred() {
	c.editors = make(map[string]*edit.Editor)
	if n := c.store.DisposeAll(); n > 0 {
		c.log.Info("navigation disposed overlays", "count", n)
	}
}

// Close disposes every record. It is equivalent to a navigation.
func (c *Controller) Close() {
	c.NavigationOccurred()
}

// State returns the lifecycle state of a tracked image.
func (c *Controller) State(imageID string) (overlay.State, bool) {
	r, ok := c.store.Get(imageID)
	if !ok {
		return overlay.Disposed, false
	}
	return r.State, true
}

// Dataset returns a copy of a rendered image's dataset.
func (c *Controller) Dataset(imageID string) (model.Dataset, bool) {
	r, ok := c.store.Get(imageID)
	if !ok || r.State != overlay.Rendered {
		return nil, false
	}
	return r.Dataset.Clone(), true
}

// Editor returns the editor of a rendered image.
func (c *Controller) Editor(imageID string) (*edit.Editor, bool) {
	e, ok := c.editors[imageID]
	return e, ok
}

// Editors returns an edit.EditorSource backed by this controller.
func (c *Controller) Editors() edit.EditorSource {
	return c.Editor
}

// Tracked returns the tracked image IDs in sorted order.
func (c *Controller) Tracked() []string {
	return c.store.IDs()
}

// Sync returns the sync loop keeping overlays aligned.
func (c *Controller) Sync() *syncloop.Loop {
	return c.sync
}

// Fetches returns the number of fetches issued.
func (c *Controller) Fetches() int {
	return c.fetches
}

// Failures returns the number of fetches that failed.
func (c *Controller) Failures() int {
	return c.failures
}

func (c *Controller) transition(r *overlay.Record, next overlay.State) {
	if !r.State.CanTransition(next) {
		c.log.Warn("invalid state transition", "image", r.Image.ID, "from", r.State, "to", next)
		return
	}
	c.log.Debug("state", "image", r.Image.ID, "from", r.State, "to", next)
	r.State = next
}
