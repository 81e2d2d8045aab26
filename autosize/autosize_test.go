package autosize

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/tsawler/ocroverlay/model"
	"golang.org/x/image/font/gofont/goregular"
)

// gridMeasurer treats every rune as a one-em square
var gridMeasurer = MeasurerFunc(func(lines []string, size float64, vertical bool) (float64, float64) {
	longest := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	along := size * float64(longest)
	across := size * float64(len(lines))
	if vertical {
		return across, along
	}
	return along, across
})

func testPolicy() Policy {
	p := DefaultPolicy()
	p.BoxAdjustment = 0
	return p
}

func TestFit(t *testing.T) {
	sep := model.ZeroWidthSeparator

	tests := []struct {
		name         string
		text         string
		w, h         float64
		merged       bool
		forced       model.Orientation
		mode         Mode
		wantSize     int
		wantVertical bool
	}{
		{"wide box picks horizontal", "abcd", 100, 20, false, model.OrientationAuto, ModeSmart, 25, false},
		{"tall box picks vertical", "abcd", 20, 100, false, model.OrientationAuto, ModeSmart, 25, true},
		{"tie goes horizontal", "ab", 40, 40, false, model.OrientationAuto, ModeSmart, 20, false},
		{"forced vertical group", "ab" + sep + "cd", 100, 20, true, model.OrientationVertical, ModeSmart, 10, true},
		{"forced horizontal group follows policy", "abcd", 20, 100, true, model.OrientationHorizontal, ModeSmart, 20, true},
		{"policy force horizontal", "abcd", 20, 100, false, model.OrientationAuto, ModeForceHorizontal, 5, false},
		{"policy force vertical", "abcd", 100, 20, false, model.OrientationAuto, ModeForceVertical, 5, true},
		{"separator wraps unmerged text", "ab" + sep + "cd", 100, 20, false, model.OrientationAuto, ModeSmart, 10, false},
		{"capped at max size", "a", 10000, 10000, false, model.OrientationAuto, ModeSmart, 200, false},
		{"nothing fits", "abcdefghij", 5, 5, false, model.OrientationAuto, ModeSmart, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPolicy()
			p.Mode = tt.mode
			res := Fit(tt.text, tt.w, tt.h, tt.merged, tt.forced, p, gridMeasurer)
			if res.FontSize != tt.wantSize {
				t.Errorf("Expected size %d, got %d", tt.wantSize, res.FontSize)
			}
			if res.Vertical != tt.wantVertical {
				t.Errorf("Expected vertical=%v, got %v", tt.wantVertical, res.Vertical)
			}
		})
	}
}

func TestFit_WrappedBoundsBothAxes(t *testing.T) {
	// Single line only checks width; the same text wrapped must fit the height too
	single := Fit("abcd", 100, 10, false, model.OrientationAuto, Policy{Mode: ModeForceHorizontal, MinSize: 1, MaxSize: 200, HorizontalMultiplier: 1, VerticalMultiplier: 1}, gridMeasurer)
	wrapped := Fit("abcd", 100, 10, true, model.OrientationAuto, Policy{Mode: ModeForceHorizontal, MinSize: 1, MaxSize: 200, HorizontalMultiplier: 1, VerticalMultiplier: 1}, gridMeasurer)

	if single.FontSize != 25 {
		t.Errorf("Expected single-line size 25, got %d", single.FontSize)
	}
	if wrapped.FontSize != 10 {
		t.Errorf("Expected wrapped size 10, got %d", wrapped.FontSize)
	}
}

func TestFit_Multiplier(t *testing.T) {
	p := testPolicy()
	p.VerticalMultiplier = 1.5
	p.HorizontalMultiplier = 0.5

	v := Fit("abcd", 20, 100, false, model.OrientationAuto, p, gridMeasurer)
	if !v.Vertical || math.Abs(v.Size-37.5) > 1e-9 {
		t.Errorf("Expected vertical size 37.5, got %+v", v)
	}

	h := Fit("abcd", 100, 20, false, model.OrientationAuto, p, gridMeasurer)
	if h.Vertical || math.Abs(h.Size-12.5) > 1e-9 {
		t.Errorf("Expected horizontal size 12.5, got %+v", h)
	}
}

func TestFit_BoxAdjustment(t *testing.T) {
	p := testPolicy()
	p.BoxAdjustment = 5

	res := Fit("abcd", 95, 20, false, model.OrientationAuto, p, gridMeasurer)
	if res.FontSize != 25 {
		t.Errorf("Expected adjusted size 25, got %d", res.FontSize)
	}
}

func TestFit_NothingToFit(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name string
		text string
		w, h float64
		m    Measurer
	}{
		{"empty text", "", 100, 100, gridMeasurer},
		{"zero width", "a", 0, 100, gridMeasurer},
		{"negative height", "a", 100, -1, gridMeasurer},
		{"no measurer", "a", 100, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := Fit(tt.text, tt.w, tt.h, false, model.OrientationAuto, p, tt.m); !res.IsZero() {
				t.Errorf("Expected zero result, got %+v", res)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"smart", ModeSmart, false},
		{"", ModeSmart, false},
		{"forceHorizontal", ModeForceHorizontal, false},
		{"forceVertical", ModeForceVertical, false},
		{"sideways", ModeSmart, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && tt.in != "" && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("Expected default policy to be valid, got %v", err)
	}
	p := DefaultPolicy()
	p.MaxSize = 0
	if err := p.Validate(); err == nil {
		t.Error("Expected error for empty size range")
	}
}

func TestFaceMeasurer(t *testing.T) {
	m := NewDefaultMeasurer()

	w20, h20 := m.Measure([]string{"Hello"}, 20, false)
	w40, h40 := m.Measure([]string{"Hello"}, 40, false)
	if w20 <= 0 || w40 <= w20 {
		t.Errorf("Expected width to grow with size, got %v then %v", w20, w40)
	}
	if h40 <= h20 {
		t.Errorf("Expected height to grow with size, got %v then %v", h20, h40)
	}

	_, twoLines := m.Measure([]string{"Hello", "Hi"}, 20, false)
	if math.Abs(twoLines-2*h20) > 1e-9 {
		t.Errorf("Expected two stacked lines of height %v, got %v", 2*h20, twoLines)
	}

	// Wide runes advance one em down a column
	_, col := m.Measure([]string{"日本語"}, 20, true)
	if math.Abs(col-60) > 1e-9 {
		t.Errorf("Expected column height 60, got %v", col)
	}
}

func TestFaceMeasurer_LetterSpacing(t *testing.T) {
	plain := NewDefaultMeasurer()
	spaced, err := NewFaceMeasurer(goregular.TTF, 2)
	if err != nil {
		t.Fatalf("NewFaceMeasurer failed: %v", err)
	}

	w1, _ := plain.Measure([]string{"abc"}, 20, false)
	w2, _ := spaced.Measure([]string{"abc"}, 20, false)
	if math.Abs(w2-w1-6) > 1e-9 {
		t.Errorf("Expected 6px of spacing, got %v", w2-w1)
	}
}

func TestNewFaceMeasurer_InvalidFont(t *testing.T) {
	if _, err := NewFaceMeasurer([]byte("not a font"), 0); err == nil {
		t.Error("Expected error for invalid font data")
	}
}
