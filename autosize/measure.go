package autosize

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"
)

// Measurer reports the rendered extent of text. Lines are laid out one per
// row for horizontal text and one per column for vertical text.
type Measurer interface {
	Measure(lines []string, size float64, vertical bool) (w, h float64)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(lines []string, size float64, vertical bool) (w, h float64)

// Measure calls f.
func (f MeasurerFunc) Measure(lines []string, size float64, vertical bool) (w, h float64) {
	return f(lines, size, vertical)
}

// FaceMeasurer measures text with an OpenType font. Vertical text is set
// upright: wide and fullwidth runes advance one em down the column, other
// runes advance by their horizontal advance.
//
// A FaceMeasurer is safe for concurrent use.
type FaceMeasurer struct {
	font          *opentype.Font
	letterSpacing float64

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFaceMeasurer creates a measurer for the given TrueType or OpenType font
// data. letterSpacing is added after every rune, in pixels.
func NewFaceMeasurer(data []byte, letterSpacing float64) (*FaceMeasurer, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("autosize: failed to parse font: %w", err)
	}
	return &FaceMeasurer{
		font:          f,
		letterSpacing: letterSpacing,
		faces:         make(map[float64]font.Face),
	}, nil
}

// NewDefaultMeasurer creates a measurer backed by the embedded Go Regular font.
func NewDefaultMeasurer() *FaceMeasurer {
	m, err := NewFaceMeasurer(goregular.TTF, 0)
	if err != nil {
		panic(err) // embedded font always parses
	}
	return m
}

// Measure implements Measurer.
func (fm *FaceMeasurer) Measure(lines []string, size float64, vertical bool) (w, h float64) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	face, err := fm.face(size)
	if err != nil {
		return math.Inf(1), math.Inf(1)
	}
	lineHeight := toFloat(face.Metrics().Height)

	var longest float64
	for _, line := range lines {
		var extent float64
		if vertical {
			extent = fm.columnHeight(face, line, size)
		} else {
			extent = toFloat(font.MeasureString(face, line)) + fm.letterSpacing*float64(utf8.RuneCountInString(line))
		}
		longest = math.Max(longest, extent)
	}

	stacked := lineHeight * float64(len(lines))
	if vertical {
		return stacked, longest
	}
	return longest, stacked
}

func (fm *FaceMeasurer) columnHeight(face font.Face, line string, size float64) float64 {
	var total float64
	for _, r := range line {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			total += size
		default:
			adv, ok := face.GlyphAdvance(r)
			if !ok {
				total += size
				continue
			}
			total += toFloat(adv)
		}
		total += fm.letterSpacing
	}
	return total
}

// face returns a cached face at the given pixel size. Callers hold fm.mu.
func (fm *FaceMeasurer) face(size float64) (font.Face, error) {
	if f, ok := fm.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(fm.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	fm.faces[size] = f
	return f, nil
}

func toFloat(x fixed.Int26_6) float64 {
	return float64(x) / 64
}
