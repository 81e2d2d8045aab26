package autosize

import (
	"fmt"
	"strings"
)

// Mode selects how the orientation of a box is chosen.
type Mode int

const (
	// ModeSmart picks whichever orientation fits the larger font size.
	ModeSmart Mode = iota
	// ModeForceHorizontal always lays text out in rows.
	ModeForceHorizontal
	// ModeForceVertical always lays text out in columns.
	ModeForceVertical
)

// String returns the settings name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeForceHorizontal:
		return "forceHorizontal"
	case ModeForceVertical:
		return "forceVertical"
	default:
		return "smart"
	}
}

// ParseMode converts a settings name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "smart":
		return ModeSmart, nil
	case "forcehorizontal", "horizontal":
		return ModeForceHorizontal, nil
	case "forcevertical", "vertical":
		return ModeForceVertical, nil
	default:
		return ModeSmart, fmt.Errorf("autosize: unknown orientation mode %q", s)
	}
}

// Policy controls font fitting. It is an immutable value; copy and modify it
// to change settings.
type Policy struct {
	// Mode selects the orientation (default: ModeSmart)
	Mode Mode

	// HorizontalMultiplier scales the fitted size of horizontal text (default: 1.0)
	HorizontalMultiplier float64

	// VerticalMultiplier scales the fitted size of vertical text (default: 1.0)
	VerticalMultiplier float64

	// BoxAdjustment is added to both available dimensions, in pixels (default: 5)
	BoxAdjustment float64

	// MinSize and MaxSize bound the binary search, in pixels (default: 1 and 200)
	MinSize int
	MaxSize int
}

// DefaultPolicy returns the default fitting policy.
func DefaultPolicy() Policy {
	return Policy{
		Mode:                 ModeSmart,
		HorizontalMultiplier: 1.0,
		VerticalMultiplier:   1.0,
		BoxAdjustment:        5,
		MinSize:              1,
		MaxSize:              200,
	}
}

// Validate checks that the policy can be used for fitting.
func (p Policy) Validate() error {
	if p.MinSize < 1 || p.MaxSize < p.MinSize {
		return fmt.Errorf("autosize: invalid size range [%d,%d]", p.MinSize, p.MaxSize)
	}
	if p.HorizontalMultiplier <= 0 || p.VerticalMultiplier <= 0 {
		return fmt.Errorf("autosize: multipliers must be positive")
	}
	return nil
}
