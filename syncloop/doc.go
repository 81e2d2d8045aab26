// Package syncloop keeps overlay geometry in step with a moving page.
//
// The loop tracks which images are visible, with the surface's preload
// margin. While any are visible it runs every display frame and moves each
// visible overlay to its image's on-screen position. The frame callback is
// cancelled as soon as the last image leaves the viewport and requested again
// on the next visibility gain.
//
// Size changes arrive separately. They resize the overlay container and
// rerun autosizing only when the width or height actually changed.
package syncloop
