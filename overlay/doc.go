// Package overlay holds the per-image records behind the text overlays.
//
// A [Record] owns one image's dataset, its overlay container and the
// subscriptions and fetch task tied to it. A [Store] keeps at most one record
// per image and releases everything a record owns when it is disposed.
//
// States move Unmanaged → Priming → Pending → Rendered, and any state may
// move to Disposed. A failed fetch moves Pending back to Unmanaged.
package overlay
