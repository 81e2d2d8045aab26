// Package discovery finds page images in HTML snapshots of a reader site
// and reports how they change over time.
//
// A [Site] names the containers that hold page images. [Scanner.Scan] parses
// one snapshot with golang.org/x/net/html, matching selectors with
// github.com/andybalholm/cascadia, and returns a [Page]; a [Tracker]
// diffs consecutive pages into discovered, removed and navigated events that
// [Dispatch] forwards to a [Sink] such as lifecycle.Controller.
//
// Only images served by the reader's page API (see [ImagePathMarker]) are
// reported.
package discovery
