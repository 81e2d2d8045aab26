package surface

import (
	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/model"
)

// Image identifies an image element on the page.
type Image struct {
	// ID is stable for the lifetime of the element
	ID string

	// Src is the image source URL
	Src string

	// Natural is the intrinsic size; zero until the image has loaded
	Natural model.Size
}

// Loaded reports whether the image has a non-zero intrinsic size.
func (img Image) Loaded() bool {
	return !img.Natural.IsZero()
}

// Observer receives per-image notifications.
type Observer struct {
	// Visibility is called when the image enters or leaves the viewport,
	// including the preload margin
	Visibility func(imageID string, visible bool)

	// Resize is called when the image's on-screen rectangle changes size
	Resize func(imageID string, rect model.Rect)
}

// FrameScheduler runs a callback before the next display frame.
type FrameScheduler interface {
	// RequestFrame schedules fn for the next frame and returns a function
	// that cancels it. Cancelling after fn has run is a no-op.
	RequestFrame(fn func()) (cancel func())
}

// Surface is the rendering surface overlays are drawn on.
type Surface interface {
	FrameScheduler

	// CreateOverlay creates the overlay container for an image.
	CreateOverlay(img Image) (Overlay, error)

	// Rect returns the image's current on-screen rectangle.
	Rect(imageID string) (model.Rect, bool)

	// Observe subscribes to visibility and size notifications for an image.
	// The returned function unsubscribes.
	Observe(imageID string, obs Observer) (unsubscribe func())

	// Measurer measures text in the font overlay boxes render with.
	Measurer() autosize.Measurer
}

// Overlay is the container holding one image's text boxes. It is owned by
// exactly one record and must be destroyed when that record is disposed.
type Overlay interface {
	// SetOrigin moves the container's top-left corner.
	SetOrigin(p model.Point)

	// SetSize resizes the container.
	SetSize(s model.Size)

	// SetVisible shows or hides the container.
	SetVisible(visible bool)

	// Place creates or repositions a text box. box is relative to the
	// container origin.
	Place(r model.Region, box model.Rect)

	// Style applies an autosizing result to a text box.
	Style(id string, res autosize.Result)

	// Highlight marks a text box as selected for merging.
	Highlight(id string, on bool)

	// Remove deletes a text box.
	Remove(id string)

	// BoxSize returns a text box's current size in pixels.
	BoxSize(id string) (model.Size, bool)

	// Destroy releases the container and every box in it.
	Destroy()
}
