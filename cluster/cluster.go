package cluster

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tsawler/ocroverlay/model"
)

// scale converts normalized coordinates into thousandths so thresholds such
// as DefaultLineSize read naturally.
const scale = 1000.0

// Result holds the outcome of a clustering pass.
type Result struct {
	// Regions is the clustered dataset: singletons unchanged, groups merged
	Regions []model.Region

	// Input is the number of regions given to the detector
	Input int

	// Groups is the number of merged groups produced
	Groups int

	// MedianHorizontal is the robust median line height of horizontal regions (thousandths)
	MedianHorizontal float64

	// MedianVertical is the robust median line width of vertical regions (thousandths)
	MedianVertical float64

	// Config is the configuration used for clustering
	Config Config
}

// Detector groups raw text regions into reading-order bubbles.
type Detector struct {
	config Config
}

// NewDetector creates a detector with default configuration
func NewDetector() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewDetectorWithConfig creates a detector with custom configuration
func NewDetectorWithConfig(config Config) *Detector {
	return &Detector{config: config}
}

// Cluster groups regions using cfg and returns the clustered dataset.
func Cluster(regions []model.Region, cfg Config) []model.Region {
	return NewDetectorWithConfig(cfg).Detect(regions).Regions
}

// item is a region prepared for pairwise comparison.
type item struct {
	region   model.Region
	vertical bool
	size     float64
	box      model.BBox // thousandths
}

// Detect clusters the regions. It never modifies its input.
func (d *Detector) Detect(regions []model.Region) *Result {
	res := &Result{Input: len(regions), Config: d.config}
	if len(regions) < 2 {
		res.Regions = regions
		return res
	}

	// Step 1: Classify and sort into a canonical order so the output does not
	// depend on the order the recognizer reported regions in
	items := prepare(regions)

	// Step 2-3: Per-orientation medians
	res.MedianHorizontal, res.MedianVertical = d.robustMedians(items)

	// Step 4-5: Pairwise test and connected components
	uf := newUnionFind(len(items))
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			median := res.MedianHorizontal
			if items[i].vertical {
				median = res.MedianVertical
			}
			if d.shouldMerge(items[i], items[j], median) {
				uf.union(i, j)
			}
		}
	}

	// Step 6: Build output
	out := make([]model.Region, 0, len(items))
	for _, members := range uf.components() {
		if len(members) == 1 {
			out = append(out, items[members[0]].region)
			continue
		}
		group := make([]item, len(members))
		for k, idx := range members {
			group[k] = items[idx]
		}
		median := res.MedianHorizontal
		if group[0].vertical {
			median = res.MedianVertical
		}
		out = append(out, d.buildGroup(group, median))
		res.Groups++
	}

	res.Regions = out
	return res
}

// prepare converts regions into items sorted by position.
func prepare(regions []model.Region) []item {
	items := make([]item, len(regions))
	for i, r := range regions {
		vertical := r.IsVertical()
		items[i] = item{
			region:   r,
			vertical: vertical,
			size:     r.LineSize() * scale,
			box:      r.BBox.Scale(scale),
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return lessCanonical(items[i].region, items[j].region)
	})
	return items
}

// lessCanonical is a total order over region values.
func lessCanonical(a, b model.Region) bool {
	switch {
	case a.BBox.Y != b.BBox.Y:
		return a.BBox.Y < b.BBox.Y
	case a.BBox.X != b.BBox.X:
		return a.BBox.X < b.BBox.X
	case a.BBox.Height != b.BBox.Height:
		return a.BBox.Height < b.BBox.Height
	case a.BBox.Width != b.BBox.Width:
		return a.BBox.Width < b.BBox.Width
	case a.Text != b.Text:
		return a.Text < b.Text
	default:
		return a.ID < b.ID
	}
}

// robustMedians returns the median line size of each orientation class,
// restricted to regions that are not much smaller than the class median.
func (d *Detector) robustMedians(items []item) (horizontal, vertical float64) {
	var hSizes, vSizes []float64
	for _, it := range items {
		if it.vertical {
			vSizes = append(vSizes, it.size)
		} else {
			hSizes = append(hSizes, it.size)
		}
	}
	return d.robustMedian(hSizes), d.robustMedian(vSizes)
}

func (d *Detector) robustMedian(sizes []float64) float64 {
	initial := median(sizes)
	primary := make([]float64, 0, len(sizes))
	for _, s := range sizes {
		if s >= initial*d.config.MinLineRatio {
			primary = append(primary, s)
		}
	}
	if m := median(primary); m > 0 {
		return m
	}
	if initial > 0 {
		return initial
	}
	return d.config.DefaultLineSize
}

// median returns the middle value, averaging the two middle values of an
// even-length slice. The median of an empty slice is 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// shouldMerge applies the pairwise test.
func (d *Detector) shouldMerge(a, b item, median float64) bool {
	if a.vertical != b.vertical {
		return false
	}

	primaryA := a.size >= median*d.config.MinLineRatio
	primaryB := b.size >= median*d.config.MinLineRatio
	mixed := primaryA != primaryB

	threshold := d.config.FontRatio
	if mixed {
		threshold = d.config.MixedFontRatio
	}
	if fontRatio(a.size, b.size) > threshold {
		return false
	}

	gap, offset, overlap, smallerPerp := measurePair(a, b)

	if gap > d.config.DistanceK*median {
		return false
	}

	overlapRatio := 0.0
	if smallerPerp > 0 {
		overlapRatio = overlap / smallerPerp
	}
	if offset > d.config.PerpTolerance*median && overlapRatio < d.config.OverlapMin {
		return false
	}
	if mixed && overlapRatio < d.config.MixedMinOverlapRatio {
		return false
	}
	return true
}

// fontRatio returns max(a,b)/min(a,b). Degenerate sizes never match.
func fontRatio(a, b float64) float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	if lo <= 0 {
		return math.Inf(1)
	}
	return hi / lo
}

// measurePair computes the gap along the reading axis, and the center offset
// and overlap along the perpendicular axis. Horizontal text reads along x,
// vertical text along y.
func measurePair(a, b item) (gap, offset, overlap, smallerPerp float64) {
	var aStart, aEnd, bStart, bEnd float64 // reading axis
	var aPerp0, aPerp1, bPerp0, bPerp1 float64
	if a.vertical {
		aStart, aEnd, bStart, bEnd = a.box.Top(), a.box.Bottom(), b.box.Top(), b.box.Bottom()
		aPerp0, aPerp1, bPerp0, bPerp1 = a.box.Left(), a.box.Right(), b.box.Left(), b.box.Right()
	} else {
		aStart, aEnd, bStart, bEnd = a.box.Left(), a.box.Right(), b.box.Left(), b.box.Right()
		aPerp0, aPerp1, bPerp0, bPerp1 = a.box.Top(), a.box.Bottom(), b.box.Top(), b.box.Bottom()
	}

	gap = math.Max(0, math.Max(aStart, bStart)-math.Min(aEnd, bEnd))
	overlap = math.Max(0, math.Min(aPerp1, bPerp1)-math.Max(aPerp0, bPerp0))
	offset = math.Abs((aPerp0+aPerp1)/2 - (bPerp0+bPerp1)/2)
	smallerPerp = math.Min(aPerp1-aPerp0, bPerp1-bPerp0)
	return gap, offset, overlap, smallerPerp
}

// buildGroup merges members into one region in reading order.
func (d *Detector) buildGroup(members []item, median float64) model.Region {
	vertical := members[0].vertical
	tolerance := median / 2

	// Members arrive in canonical order, so a stable sort keeps ties deterministic
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i].box, members[j].box
		if vertical {
			// Columns run right to left; within a column, top to bottom
			if math.Abs(b.X-a.X) > tolerance {
				return a.X > b.X
			}
			return a.Y < b.Y
		}
		// Rows run top to bottom; within a row, left to right
		if math.Abs(a.Y-b.Y) > tolerance {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	texts := make([]string, len(members))
	boxes := make([]model.BBox, len(members))
	keys := make([]string, len(members))
	for i, m := range members {
		texts[i] = m.region.Text
		boxes[i] = m.region.BBox
		keys[i] = memberKey(m.region)
	}
	sort.Strings(keys)

	orientation := model.OrientationHorizontal
	if vertical {
		orientation = model.OrientationVertical
	}

	return model.Region{
		ID:                model.DeriveID(keys...),
		Text:              strings.Join(texts, d.config.Separator),
		BBox:              model.UnionAll(boxes...),
		Merged:            true,
		ForcedOrientation: orientation,
	}
}

// memberKey identifies a member for group ID derivation.
func memberKey(r model.Region) string {
	if r.ID != "" {
		return r.ID
	}
	b := r.BBox
	return fmt.Sprintf("%s|%g|%g|%g|%g", r.Text, b.X, b.Y, b.Width, b.Height)
}
