package cluster

import (
	"fmt"

	"github.com/tsawler/ocroverlay/model"
)

// Config holds the thresholds used to decide whether two regions belong to
// the same group. Sizes and distances are expressed relative to the robust
// median line size of the pair's orientation.
type Config struct {
	// DistanceK bounds the gap along the reading axis, as a multiple of the
	// median line size (default: 1.2)
	DistanceK float64

	// FontRatio is the largest allowed ratio between two line sizes when both
	// regions are primary or both are secondary (default: 1.3)
	FontRatio float64

	// PerpTolerance bounds the offset between box centers on the perpendicular
	// axis, as a multiple of the median line size (default: 0.5)
	PerpTolerance float64

	// OverlapMin is the perpendicular overlap ratio that excuses a large center
	// offset (default: 0.1)
	OverlapMin float64

	// MinLineRatio separates primary regions from secondary ones, as a fraction
	// of the median line size (default: 0.5)
	MinLineRatio float64

	// MixedFontRatio replaces FontRatio when exactly one region of the pair is
	// primary (default: 1.1)
	MixedFontRatio float64

	// MixedMinOverlapRatio is the minimum perpendicular overlap ratio for a
	// primary/secondary pair (default: 0.5)
	MixedMinOverlapRatio float64

	// Separator joins member text in a group. Either a space or
	// model.ZeroWidthSeparator (default).
	Separator string

	// DefaultLineSize is the fallback median, in thousandths of the image
	// dimension, used when an orientation class yields no median (default: 20)
	DefaultLineSize float64
}

// DefaultConfig returns the thresholds tuned for comic speech bubbles.
func DefaultConfig() Config {
	return Config{
		DistanceK:            1.2,
		FontRatio:            1.3,
		PerpTolerance:        0.5,
		OverlapMin:           0.1,
		MinLineRatio:         0.5,
		MixedFontRatio:       1.1,
		MixedMinOverlapRatio: 0.5,
		Separator:            model.ZeroWidthSeparator,
		DefaultLineSize:      20,
	}
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	if c.DistanceK < 0 {
		return fmt.Errorf("cluster: DistanceK must be non-negative, got %v", c.DistanceK)
	}
	if c.FontRatio < 1 || c.MixedFontRatio < 1 {
		return fmt.Errorf("cluster: font ratios must be at least 1, got %v and %v", c.FontRatio, c.MixedFontRatio)
	}
	if c.PerpTolerance < 0 || c.OverlapMin < 0 || c.MixedMinOverlapRatio < 0 {
		return fmt.Errorf("cluster: tolerances must be non-negative")
	}
	if c.MinLineRatio < 0 {
		return fmt.Errorf("cluster: MinLineRatio must be non-negative, got %v", c.MinLineRatio)
	}
	if c.DefaultLineSize <= 0 {
		return fmt.Errorf("cluster: DefaultLineSize must be positive, got %v", c.DefaultLineSize)
	}
	return nil
}
