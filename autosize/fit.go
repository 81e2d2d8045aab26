package autosize

import (
	"strings"

	"github.com/tsawler/ocroverlay/model"
)

// Result is the outcome of fitting one box.
type Result struct {
	// FontSize is the largest size that fits, before the orientation multiplier
	FontSize int

	// Vertical reports whether the text is laid out in columns
	Vertical bool

	// Size is FontSize scaled by the orientation multiplier; this is the size
	// to render with
	Size float64
}

// IsZero reports whether fitting was skipped.
func (r Result) IsZero() bool {
	return r.FontSize == 0
}

// Fit finds the largest font size at which text fits the available area.
//
// Both orientations are searched. Wrapped text (merged groups, or text
// containing model.ZeroWidthSeparator) must fit in both dimensions; a single
// line is only bounded along its reading axis. A forced vertical orientation
// overrides the policy mode. Fit returns a zero Result when there is nothing
// to fit.
func Fit(text string, availWidth, availHeight float64, merged bool, forced model.Orientation, policy Policy, m Measurer) Result {
	availWidth += policy.BoxAdjustment
	availHeight += policy.BoxAdjustment
	if text == "" || availWidth <= 0 || availHeight <= 0 || m == nil {
		return Result{}
	}

	wrapped := merged || strings.Contains(text, model.ZeroWidthSeparator)
	lines := []string{text}
	if wrapped {
		lines = strings.Split(text, model.ZeroWidthSeparator)
	}

	s := searcher{
		lines:   lines,
		wrapped: wrapped,
		width:   availWidth,
		height:  availHeight,
		policy:  policy,
		m:       m,
	}
	horizontal := s.best(false)
	vertical := s.best(true)

	var res Result
	switch {
	case forced == model.OrientationVertical:
		res = Result{FontSize: vertical, Vertical: true}
	case policy.Mode == ModeForceVertical:
		res = Result{FontSize: vertical, Vertical: true}
	case policy.Mode == ModeForceHorizontal:
		res = Result{FontSize: horizontal}
	case vertical > horizontal:
		res = Result{FontSize: vertical, Vertical: true}
	default:
		res = Result{FontSize: horizontal}
	}

	multiplier := policy.HorizontalMultiplier
	if res.Vertical {
		multiplier = policy.VerticalMultiplier
	}
	res.Size = float64(res.FontSize) * multiplier
	return res
}

type searcher struct {
	lines   []string
	wrapped bool
	width   float64
	height  float64
	policy  Policy
	m       Measurer
}

// best binary-searches the largest fitting size for one orientation. The
// smallest size is returned when nothing fits.
func (s searcher) best(vertical bool) int {
	low, high := s.policy.MinSize, s.policy.MaxSize
	if low < 1 {
		low = 1
	}
	best := low
	for low <= high {
		mid := (low + high) / 2
		if s.fits(mid, vertical) {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return best
}

func (s searcher) fits(size int, vertical bool) bool {
	w, h := s.m.Measure(s.lines, float64(size), vertical)
	if s.wrapped {
		return w <= s.width && h <= s.height
	}
	if vertical {
		return h <= s.height
	}
	return w <= s.width
}
