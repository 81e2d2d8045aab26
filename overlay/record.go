package overlay

import (
	"context"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/surface"
)

// State is the lifecycle state of a tracked image.
type State int

const (
	// Unmanaged images are known but not being processed. Failed fetches
	// return here so a later trigger can retry.
	Unmanaged State = iota
	// Priming images are waiting to finish loading.
	Priming
	// Pending images have exactly one fetch in flight.
	Pending
	// Rendered images have a dataset and an overlay.
	Rendered
	// Disposed records are dead and must not be touched.
	Disposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unmanaged:
		return "unmanaged"
	case Priming:
		return "priming"
	case Pending:
		return "pending"
	case Rendered:
		return "rendered"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a record may move from s to next.
func (s State) CanTransition(next State) bool {
	if s == Disposed {
		return false
	}
	if next == Disposed {
		return true
	}
	switch s {
	case Unmanaged:
		return next == Priming || next == Pending
	case Priming:
		return next == Pending
	case Pending:
		return next == Rendered || next == Unmanaged
	default:
		return false
	}
}

// Record is everything tracked for one image. It is owned by a Store and,
// through it, by the lifecycle controller.
type Record struct {
	Image surface.Image
	State State

	// Dataset is replaced on a successful fetch and edited in place by
	// delete and merge.
	Dataset model.Dataset

	// Overlay is the record's rendering resource; nil until Rendered.
	Overlay surface.Overlay

	// Styles holds the last autosizing result per dataset entry.
	Styles map[string]autosize.Result

	lastSize model.Size
	hasSize  bool

	token       uint64
	cancel      context.CancelFunc
	unsubscribe func()
}

// LastRenderedSize returns the size autosizing last ran for.
func (r *Record) LastRenderedSize() (model.Size, bool) {
	return r.lastSize, r.hasSize
}

// SetLastRenderedSize records the size autosizing ran for.
func (r *Record) SetLastRenderedSize(s model.Size) {
	r.lastSize = s
	r.hasSize = true
}

// Token identifies the record's current task. A completion carrying any other
// token is stale.
func (r *Record) Token() uint64 {
	return r.token
}

// BeginTask starts a new task, cancelling any previous one, and returns its
// context and token.
func (r *Record) BeginTask(parent context.Context, token uint64) context.Context {
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	r.token = token
	r.cancel = cancel
	return ctx
}

// EndTask releases the current task's context.
func (r *Record) EndTask() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// SetSubscription stores the function that ends the record's surface
// subscriptions.
func (r *Record) SetSubscription(unsubscribe func()) {
	r.unsubscribe = unsubscribe
}

// EndSubscription ends the record's surface subscriptions, if any.
func (r *Record) EndSubscription() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// dispose releases every resource the record owns.
func (r *Record) dispose() {
	r.EndTask()
	r.token = 0
	r.EndSubscription()
	if r.Overlay != nil {
		r.Overlay.Destroy()
		r.Overlay = nil
	}
	r.Dataset = nil
	r.Styles = nil
	r.hasSize = false
	r.State = Disposed
}
