// Package autosize picks the font size and orientation for overlay text.
//
// [Fit] binary-searches the largest integer size in the policy range at which
// the text fits its box, once for horizontal and once for vertical layout,
// then chooses an orientation:
//
//	res := autosize.Fit(r.Text, w, h, r.Merged, r.ForcedOrientation,
//	    autosize.DefaultPolicy(), autosize.NewDefaultMeasurer())
//
// Measurements must come from the same font the overlay renders with.
// [FaceMeasurer] measures with any TrueType or OpenType font through
// golang.org/x/image; other surfaces can plug in their own [Measurer].
package autosize
