// Package cluster groups raw text-detection boxes into reading-order
// bubbles.
//
// Recognizers report one box per detected line or column. Speech bubbles
// and captions usually span several of them, so the [Detector] joins
// neighbouring boxes that share an orientation and a similar line size:
//
//	regions = cluster.Cluster(regions, cluster.DefaultConfig())
//
// # Algorithm
//
//  1. Classify each region as horizontal (width > height) or vertical.
//  2. Compute the median line size of each orientation class.
//  3. Recompute the median over primary regions only (line size at least
//     MinLineRatio of the first median), falling back to the first median
//     and then to DefaultLineSize.
//  4. Test every same-orientation pair: line-size ratio, gap along the
//     reading axis, center offset and overlap on the perpendicular axis.
//     Pairs mixing a primary and a secondary region use stricter limits.
//  5. Join passing pairs with a union-find forest.
//  6. Emit singletons unchanged and merge larger components. Vertical groups
//     read right to left then top to bottom; horizontal groups read top to
//     bottom then left to right.
//
// # Determinism
//
// Regions are sorted into a canonical geometric order before comparison, and
// group IDs are derived from member IDs, so any permutation of the same input
// yields the same output.
package cluster
