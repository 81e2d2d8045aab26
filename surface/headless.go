package surface

import (
	"errors"
	"sort"
	"sync"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
)

// DefaultPreloadMargin extends the viewport vertically so images just outside
// it count as visible.
const DefaultPreloadMargin = 100.0

// ErrOverlayExists is returned when an image already has a live overlay.
var ErrOverlayExists = errors.New("surface: overlay already exists for image")

// Headless is an in-memory Surface. Image rectangles and the viewport are
// set by the caller, and frames run only when Tick is called. It is used for
// offline layout and in tests.
type Headless struct {
	mu sync.Mutex

	measurer      autosize.Measurer
	viewport      model.Rect
	hasViewport   bool
	preloadMargin float64

	rects     map[string]model.Rect
	visible   map[string]bool
	observers map[string]map[int]Observer
	nextObs   int

	frames    map[int]func()
	nextFrame int

	overlays map[string]*HeadlessOverlay
}

// HeadlessOption configures a Headless surface.
type HeadlessOption func(*Headless)

// WithViewport sets the initial viewport. Without one every image is visible.
func WithViewport(r model.Rect) HeadlessOption {
	return func(h *Headless) {
		h.viewport = r
		h.hasViewport = true
	}
}

// WithPreloadMargin sets the vertical preload margin (default: 100)
func WithPreloadMargin(px float64) HeadlessOption {
	return func(h *Headless) {
		h.preloadMargin = px
	}
}

// NewHeadless creates a headless surface that measures text with m.
func NewHeadless(m autosize.Measurer, opts ...HeadlessOption) *Headless {
	h := &Headless{
		measurer:      m,
		preloadMargin: DefaultPreloadMargin,
		rects:         make(map[string]model.Rect),
		visible:       make(map[string]bool),
		observers:     make(map[string]map[int]Observer),
		frames:        make(map[int]func()),
		overlays:      make(map[string]*HeadlessOverlay),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Measurer implements Surface.
func (h *Headless) Measurer() autosize.Measurer {
	return h.measurer
}

// CreateOverlay implements Surface.
func (h *Headless) CreateOverlay(img Image) (Overlay, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if o, ok := h.overlays[img.ID]; ok && !o.destroyed {
		return nil, ErrOverlayExists
	}
	o := &HeadlessOverlay{
		imageID: img.ID,
		boxes:   make(map[string]*HeadlessBox),
		owner:   h,
	}
	h.overlays[img.ID] = o
	return o, nil
}

// Rect implements Surface.
func (h *Headless) Rect(imageID string) (model.Rect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rects[imageID]
	return r, ok
}

// Observe implements Surface. Like intersection and resize observers, it
// reports the current visibility and size of a known image straight away.
func (h *Headless) Observe(imageID string, obs Observer) func() {
	h.mu.Lock()
	if h.observers[imageID] == nil {
		h.observers[imageID] = make(map[int]Observer)
	}
	id := h.nextObs
	h.nextObs++
	h.observers[imageID][id] = obs
	rect, known := h.rects[imageID]
	visible := h.visible[imageID]
	h.mu.Unlock()

	if known && obs.Visibility != nil {
		obs.Visibility(imageID, visible)
	}
	if known && obs.Resize != nil {
		obs.Resize(imageID, rect)
	}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.observers[imageID], id)
		if len(h.observers[imageID]) == 0 {
			delete(h.observers, imageID)
		}
	}
}

// RequestFrame implements FrameScheduler.
func (h *Headless) RequestFrame(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextFrame
	h.nextFrame++
	h.frames[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.frames, id)
	}
}

// Tick runs every frame callback requested before the call, in request order,
// and returns how many ran. Callbacks requested while ticking wait for the
// next Tick.
func (h *Headless) Tick() int {
	h.mu.Lock()
	ids := make([]int, 0, len(h.frames))
	for id := range h.frames {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), len(ids))
	for i, id := range ids {
		fns[i] = h.frames[id]
		delete(h.frames, id)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// PendingFrames returns the number of scheduled frame callbacks.
func (h *Headless) PendingFrames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

// SetRect moves or resizes an image and notifies observers.
func (h *Headless) SetRect(imageID string, r model.Rect) {
	h.mu.Lock()
	old, known := h.rects[imageID]
	h.rects[imageID] = r
	resized := !known || old.Width != r.Width || old.Height != r.Height
	obs := h.observersLocked(imageID)
	changes := h.recomputeLocked()
	h.mu.Unlock()

	if resized {
		for _, o := range obs {
			if o.Resize != nil {
				o.Resize(imageID, r)
			}
		}
	}
	h.notify(changes)
}

// RemoveImage forgets an image. Its overlay, if any, is left for the owner to
// destroy.
func (h *Headless) RemoveImage(imageID string) {
	h.mu.Lock()
	delete(h.rects, imageID)
	delete(h.visible, imageID)
	h.mu.Unlock()
}

// SetViewport moves the viewport and notifies observers of visibility changes.
func (h *Headless) SetViewport(r model.Rect) {
	h.mu.Lock()
	h.viewport = r
	h.hasViewport = true
	changes := h.recomputeLocked()
	h.mu.Unlock()

	h.notify(changes)
}

// Scroll moves every image by dy, as scrolling the page would.
func (h *Headless) Scroll(dy float64) {
	h.mu.Lock()
	for id, r := range h.rects {
		r.Y -= dy
		h.rects[id] = r
	}
	changes := h.recomputeLocked()
	h.mu.Unlock()

	h.notify(changes)
}

// Overlay returns the overlay created for an image, for inspection.
func (h *Headless) Overlay(imageID string) (*HeadlessOverlay, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.overlays[imageID]
	return o, ok
}

// Observed reports whether anything is subscribed to an image.
func (h *Headless) Observed(imageID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers[imageID]) > 0
}

type visibilityChange struct {
	imageID string
	visible bool
	obs     []Observer
}

// recomputeLocked updates visibility for every image and returns the changes.
func (h *Headless) recomputeLocked() []visibilityChange {
	var changes []visibilityChange
	ids := make([]string, 0, len(h.rects))
	for id := range h.rects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		v := h.inViewLocked(h.rects[id])
		if v == h.visible[id] {
			continue
		}
		h.visible[id] = v
		changes = append(changes, visibilityChange{imageID: id, visible: v, obs: h.observersLocked(id)})
	}
	return changes
}

func (h *Headless) inViewLocked(r model.Rect) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	if !h.hasViewport {
		return true
	}
	top := h.viewport.Y - h.preloadMargin
	bottom := h.viewport.Y + h.viewport.Height + h.preloadMargin
	return r.Y < bottom && r.Y+r.Height > top &&
		r.X < h.viewport.X+h.viewport.Width && r.X+r.Width > h.viewport.X
}

func (h *Headless) observersLocked(imageID string) []Observer {
	m := h.observers[imageID]
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Observer, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

func (h *Headless) notify(changes []visibilityChange) {
	for _, c := range changes {
		for _, o := range c.obs {
			if o.Visibility != nil {
				o.Visibility(c.imageID, c.visible)
			}
		}
	}
}

// HeadlessBox is the state of one text box in a headless overlay.
type HeadlessBox struct {
	Region      model.Region
	Box         model.Rect
	Style       autosize.Result
	Highlighted bool
}

// HeadlessOverlay records every change made to it.
type HeadlessOverlay struct {
	imageID string
	owner   *Headless

	mu        sync.Mutex
	origin    model.Point
	size      model.Size
	visible   bool
	destroyed bool
	boxes     map[string]*HeadlessBox
	order     []string
}

// SetOrigin implements Overlay.
func (o *HeadlessOverlay) SetOrigin(p model.Point) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.origin = p
}

// SetSize implements Overlay.
func (o *HeadlessOverlay) SetSize(s model.Size) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.size = s
}

// SetVisible implements Overlay.
func (o *HeadlessOverlay) SetVisible(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = visible
}

// Place implements Overlay.
func (o *HeadlessOverlay) Place(r model.Region, box model.Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.boxes[r.ID]; ok {
		b.Region = r
		b.Box = box
		return
	}
	o.boxes[r.ID] = &HeadlessBox{Region: r, Box: box}
	o.order = append(o.order, r.ID)
}

// Style implements Overlay.
func (o *HeadlessOverlay) Style(id string, res autosize.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.boxes[id]; ok {
		b.Style = res
	}
}

// Highlight implements Overlay.
func (o *HeadlessOverlay) Highlight(id string, on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b, ok := o.boxes[id]; ok {
		b.Highlighted = on
	}
}

// Remove implements Overlay.
func (o *HeadlessOverlay) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.boxes[id]; !ok {
		return
	}
	delete(o.boxes, id)
	for i, oid := range o.order {
		if oid == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// BoxSize implements Overlay.
func (o *HeadlessOverlay) BoxSize(id string) (model.Size, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.boxes[id]
	if !ok {
		return model.Size{}, false
	}
	return b.Box.Size(), true
}

// Destroy implements Overlay.
func (o *HeadlessOverlay) Destroy() {
	o.mu.Lock()
	o.destroyed = true
	o.boxes = make(map[string]*HeadlessBox)
	o.order = nil
	o.mu.Unlock()

	o.owner.mu.Lock()
	if cur, ok := o.owner.overlays[o.imageID]; ok && cur == o {
		delete(o.owner.overlays, o.imageID)
	}
	o.owner.mu.Unlock()
}

// Origin returns the container's top-left corner.
func (o *HeadlessOverlay) Origin() model.Point {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.origin
}

// Size returns the container's size.
func (o *HeadlessOverlay) Size() model.Size {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

// Visible reports whether the container is shown.
func (o *HeadlessOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// Destroyed reports whether Destroy has been called.
func (o *HeadlessOverlay) Destroyed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.destroyed
}

// Boxes returns copies of the boxes in placement order.
func (o *HeadlessOverlay) Boxes() []HeadlessBox {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]HeadlessBox, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.boxes[id])
	}
	return out
}

// Box returns a copy of one box.
func (o *HeadlessOverlay) Box(id string) (HeadlessBox, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.boxes[id]
	if !ok {
		return HeadlessBox{}, false
	}
	return *b, true
}
