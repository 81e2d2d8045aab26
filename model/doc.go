// Package model defines the data shared by every overlay component.
//
// # Regions
//
// A [Region] is one entry of an image's dataset. Raw detections from the
// recognizer and merged groups share the same shape:
//
//	r := model.NewRegion("こんにちは", model.NewBBox(0.1, 0.2, 0.05, 0.3))
//	r.IsVertical() // true
//	r.LineSize()   // 0.05
//
// Groups set Merged and ForcedOrientation, and their Text joins member text
// with either a space or [ZeroWidthSeparator].
//
// Every region carries a durable ID. Edits address regions by ID through
// [Dataset], never by position.
//
// # Geometry
//
//   - [BBox] - image-normalized box, top-left origin, [0,1] on both axes
//   - [Rect] - on-screen rectangle in pixels
//   - [Size] - on-screen width and height
//   - [Point] - 2D point with distance calculation
package model
