package syncloop

import (
	"sort"

	"github.com/tsawler/ocroverlay/internal/logging"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// Loop keeps overlays aligned with their images. All methods must be called
// from the event loop goroutine.
type Loop struct {
	surface   surface.Surface
	scheduler surface.FrameScheduler
	store     *overlay.Store
	renderer  overlay.Renderer
	log       *logging.Logger

	visible     map[string]bool
	cancelFrame func()
	frames      int
}

// Option configures a Loop.
type Option func(*Loop)

// WithScheduler overrides the surface's frame scheduler.
func WithScheduler(s surface.FrameScheduler) Option {
	return func(l *Loop) {
		l.scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(l *Loop) {
		l.log = log
	}
}

// New creates a sync loop over the records in store.
func New(s surface.Surface, store *overlay.Store, rd overlay.Renderer, opts ...Option) *Loop {
	l := &Loop{
		surface:   s,
		scheduler: s,
		store:     store,
		renderer:  rd,
		log:       logging.Discard(),
		visible:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Track subscribes to an image's visibility and size notifications. The
// subscription is stored on the record and ends when the record is disposed.
func (l *Loop) Track(r *overlay.Record) {
	id := r.Image.ID
	unsubscribe := l.surface.Observe(id, surface.Observer{
		Visibility: l.VisibilityChanged,
		Resize:     func(imageID string, rect model.Rect) { l.SizeChanged(imageID, rect) },
	})
	r.SetSubscription(func() {
		unsubscribe()
		l.Untrack(id)
	})
}

// Untrack removes an image from the visible set.
func (l *Loop) Untrack(imageID string) {
	if !l.visible[imageID] {
		return
	}
	delete(l.visible, imageID)
	if len(l.visible) == 0 {
		l.stop()
	}
}

// VisibilityChanged adds an image to or removes it from the visible set.
// The frame loop starts on the first visible image and stops when none are
// left.
func (l *Loop) VisibilityChanged(imageID string, visible bool) {
	r, ok := l.store.Get(imageID)
	if visible {
		if l.visible[imageID] {
			return
		}
		l.visible[imageID] = true
		if ok && r.Overlay != nil {
			r.Overlay.SetVisible(true)
		}
		if l.cancelFrame == nil {
			l.log.Debug("frame loop started", "image", imageID)
			l.cancelFrame = l.scheduler.RequestFrame(l.frame)
		}
		return
	}

	if !l.visible[imageID] {
		return
	}
	delete(l.visible, imageID)
	if ok && r.Overlay != nil {
		r.Overlay.SetVisible(false)
	}
	if len(l.visible) == 0 {
		l.stop()
	}
}

// SizeChanged resizes an image's overlay. Autosizing reruns only when the
// width or height differs from the size it last ran for. It reports whether
// autosizing ran.
func (l *Loop) SizeChanged(imageID string, rect model.Rect) bool {
	r, ok := l.store.Get(imageID)
	if !ok || r.State != overlay.Rendered || r.Overlay == nil {
		return false
	}
	if rect.Size().IsZero() {
		return false
	}
	l.renderer.Layout(r, rect)

	if last, ok := r.LastRenderedSize(); ok && last == rect.Size() {
		return false
	}
	l.renderer.AutosizeAll(r, rect.Size())
	l.log.Debug("autosized after resize", "image", imageID, "width", rect.Width, "height", rect.Height)
	return true
}

// Visible returns the visible image IDs in sorted order.
func (l *Loop) Visible() []string {
	ids := make([]string, 0, len(l.visible))
	for id := range l.visible {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Running reports whether a frame is scheduled.
func (l *Loop) Running() bool {
	return l.cancelFrame != nil
}

// Frames returns the number of frames run so far.
func (l *Loop) Frames() int {
	return l.frames
}

func (l *Loop) stop() {
	if l.cancelFrame != nil {
		l.cancelFrame()
		l.cancelFrame = nil
		l.log.Debug("frame loop stopped")
	}
}

// frame moves every visible overlay to its image's current position and
// schedules the next frame.
func (l *Loop) frame() {
	l.cancelFrame = nil
	if len(l.visible) == 0 {
		return
	}
	l.frames++
	for _, id := range l.Visible() {
		r, ok := l.store.Get(id)
		if !ok || r.Overlay == nil {
			continue
		}
		rect, ok := l.surface.Rect(id)
		if !ok {
			continue
		}
		r.Overlay.SetOrigin(rect.Origin())
	}
	l.cancelFrame = l.scheduler.RequestFrame(l.frame)
}
