package lifecycle

import (
	"github.com/tsawler/ocroverlay/edit"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// startFetch moves a record to Pending and fetches its regions on a new
// goroutine. The completion is posted back to the event loop tagged with the
// task token.
func (c *Controller) startFetch(r *overlay.Record) {
	c.nextToken++
	token := c.nextToken
	r.EndSubscription()
	ctx := r.BeginTask(c.ctx, token)
	c.transition(r, overlay.Pending)
	c.fetches++

	id, src := r.Image.ID, r.Image.Src
	c.log.Debug("fetching regions", "image", id, "src", src)
	go func() {
		regions, err := c.fetcher.FetchRegions(ctx, src)
		c.poster.Post(func() {
			c.complete(id, token, regions, err)
		})
	}()
}

// complete applies a fetch result. Results for records that were disposed or
// have started another task are dropped.
func (c *Controller) complete(imageID string, token uint64, regions []model.Region, err error) {
	r, ok := c.store.Get(imageID)
	if !ok || r.Token() != token || r.State != overlay.Pending {
		c.log.Debug("dropping stale fetch result", "image", imageID)
		return
	}
	r.EndTask()

	if err != nil {
		c.failures++
		c.transition(r, overlay.Unmanaged)
		c.log.Warn("fetch failed", "image", imageID, "error", err)
		c.retryOnReentry(r)
		return
	}
	c.render(r, regions)
}

// render builds the dataset and overlay of a record whose fetch succeeded.
func (c *Controller) render(r *overlay.Record, regions []model.Region) {
	ds := make(model.Dataset, len(regions))
	copy(ds, regions)
	for i := range ds {
		ds[i].EnsureID()
	}
	if c.mergeEnabled {
		res := c.detector.Detect(ds)
		ds = res.Regions
		c.log.Debug("clustered", "image", r.Image.ID, "input", res.Input, "groups", res.Groups)
	}

	ov, err := c.surface.CreateOverlay(r.Image)
	if err != nil {
		c.failures++
		c.transition(r, overlay.Unmanaged)
		c.log.Error("failed to create overlay", "image", r.Image.ID, "error", err)
		c.retryOnReentry(r)
		return
	}

	r.Dataset = ds
	r.Overlay = ov
	c.transition(r, overlay.Rendered)

	if rect, ok := c.surface.Rect(r.Image.ID); ok && !rect.Size().IsZero() {
		c.renderer.Layout(r, rect)
		c.renderer.AutosizeAll(r, rect.Size())
	}
	c.sync.Track(r)
	c.editors[r.Image.ID] = edit.NewEditor(r, c.surface, c.renderer, c.separator, c.log.Named("edit"))

	c.log.Info("overlay rendered", "image", r.Image.ID, "regions", len(ds))
}

// retryOnReentry watches an image whose fetch failed and retriggers it the
// next time it comes back into view. An image that stays in view is not
// retried. The subscription ends with the next fetch or at disposal.
func (c *Controller) retryOnReentry(r *overlay.Record) {
	id := r.Image.ID
	left := false
	unsubscribe := c.surface.Observe(id, surface.Observer{
		Visibility: func(_ string, visible bool) {
			if !visible {
				left = true
				return
			}
			if !left {
				return
			}
			cur, ok := c.store.Get(id)
			if !ok || cur.State != overlay.Unmanaged {
				return
			}
			c.log.Debug("retrying on re-entry", "image", id)
			c.Retrigger(cur.Image)
		},
	})
	r.SetSubscription(unsubscribe)
}
