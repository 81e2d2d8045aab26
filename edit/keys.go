package edit

import (
	"fmt"
	"strings"
)

// Modifier is a set of modifier keys.
type Modifier uint8

const (
	ModControl Modifier = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

// ModNone is the empty set.
const ModNone Modifier = 0

// ParseModifier converts a key name into a Modifier. Names are case
// insensitive; "ctrl", "win" and "cmd" are accepted as aliases.
func ParseModifier(name string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "control", "ctrl":
		return ModControl, nil
	case "alt":
		return ModAlt, nil
	case "shift":
		return ModShift, nil
	case "meta", "win", "cmd":
		return ModMeta, nil
	default:
		return ModNone, fmt.Errorf("edit: unknown modifier key %q", name)
	}
}

// Has reports whether every key in k is held in m.
func (m Modifier) Has(k Modifier) bool {
	return k != ModNone && m&k == k
}

// String returns the canonical key name.
func (m Modifier) String() string {
	var names []string
	if m&ModControl != 0 {
		names = append(names, "Control")
	}
	if m&ModAlt != 0 {
		names = append(names, "Alt")
	}
	if m&ModShift != 0 {
		names = append(names, "Shift")
	}
	if m&ModMeta != 0 {
		names = append(names, "Meta")
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "+")
}
