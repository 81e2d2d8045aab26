package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ZeroWidthSeparator joins merged text when spaces are not wanted. Renderers
// treat it as a soft line break.
const ZeroWidthSeparator = "\u200B"

// Orientation is the writing direction of a region.
type Orientation int

const (
	// OrientationAuto leaves the choice to the autosizing policy.
	OrientationAuto Orientation = iota
	// OrientationHorizontal is left-to-right text in rows.
	OrientationHorizontal
	// OrientationVertical is top-to-bottom text in columns.
	OrientationVertical
)

// String returns the wire name of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "horizontal"
	case OrientationVertical:
		return "vertical"
	default:
		return "auto"
	}
}

// ParseOrientation converts a wire name into an Orientation. Unknown names map
// to OrientationAuto.
func ParseOrientation(s string) Orientation {
	switch strings.ToLower(s) {
	case "horizontal":
		return OrientationHorizontal
	case "vertical":
		return OrientationVertical
	default:
		return OrientationAuto
	}
}

// MarshalJSON encodes the orientation as its wire name.
func (o Orientation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes a wire name.
func (o *Orientation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("orientation: %w", err)
	}
	*o = ParseOrientation(s)
	return nil
}

// Region is one entry of an image's dataset. A raw detection from the
// recognizer has Merged == false; a group produced by clustering or by a
// manual merge has Merged == true and a ForcedOrientation.
type Region struct {
	// ID is a durable identifier assigned when the region is created.
	ID string `json:"id,omitempty"`

	// Text is the recognized text. Merged groups join member text with a separator.
	Text string `json:"text"`

	// BBox is the tight bounding box in image-normalized coordinates.
	BBox BBox `json:"tightBoundingBox"`

	// Merged marks a group of regions.
	Merged bool `json:"isMerged,omitempty"`

	// ForcedOrientation is the group's shared orientation.
	ForcedOrientation Orientation `json:"forcedOrientation,omitempty"`
}

// NewRegion creates a raw region with a fresh ID.
func NewRegion(text string, bbox BBox) Region {
	return Region{ID: NewID(), Text: text, BBox: bbox}
}

// NewID returns a new durable region identifier.
func NewID() string {
	return uuid.NewString()
}

// groupNamespace scopes deterministic group identifiers.
var groupNamespace = uuid.MustParse("6f1b7c1e-3c1a-4a8e-9d0f-2b7f5e1c9a44")

// DeriveID returns an identifier that depends only on the given keys, so the
// same members always produce the same group ID.
func DeriveID(keys ...string) string {
	return uuid.NewSHA1(groupNamespace, []byte(strings.Join(keys, "\x00"))).String()
}

// IsVertical reports whether the box is at least as tall as it is wide.
func (r Region) IsVertical() bool {
	return r.BBox.Width <= r.BBox.Height
}

// LineSize is the box's extent across the reading axis: the width of a
// vertical column or the height of a horizontal row.
func (r Region) LineSize() float64 {
	if r.IsVertical() {
		return r.BBox.Width
	}
	return r.BBox.Height
}

// IsWrapped reports whether the text should be laid out as a multi-line block.
func (r Region) IsWrapped() bool {
	return r.Merged || strings.Contains(r.Text, ZeroWidthSeparator)
}

// Lines splits the text at zero-width separators.
func (r Region) Lines() []string {
	return strings.Split(r.Text, ZeroWidthSeparator)
}

// EnsureID assigns a fresh ID if the region has none.
func (r *Region) EnsureID() {
	if r.ID == "" {
		r.ID = NewID()
	}
}
