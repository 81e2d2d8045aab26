// Package edit lets a user correct segmentation by deleting and merging
// overlay boxes.
//
// An [Editor] implements the edits on one image's dataset. Two presentations
// drive it: [Desktop] for modifier-key multi-select and [Mobile] for an
// explicit edit mode with two-tap merges.
//
// A merge with fewer than two selected boxes is a no-op that only clears the
// selection.
package edit
