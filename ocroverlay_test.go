package ocroverlay

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
	"github.com/tsawler/ocroverlay/config"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/ocrserver"
)

// gridMeasurer treats every rune as a square of the font size.
var gridMeasurer = autosize.MeasurerFunc(func(lines []string, size float64, vertical bool) (float64, float64) {
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	if vertical {
		return size * float64(len(lines)), size * float64(longest)
	}
	return size * float64(longest), size * float64(len(lines))
})

func sameLine() []model.Region {
	return []model.Region{
		{ID: "a", Text: "A", BBox: model.NewBBox(0, 0, 0.1, 0.05)},
		{ID: "b", Text: "B", BBox: model.NewBBox(0.11, 0, 0.1, 0.05)},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

type fakeFetcher struct {
	regions []model.Region
	err     error
	src     string
}

func (f *fakeFetcher) FetchRegions(_ context.Context, src string) ([]model.Region, error) {
	f.src = src
	return f.regions, f.err
}

func TestRegions_Merge(t *testing.T) {
	regions, err := FromRegions(sameLine()).Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(regions))
	}
	if want := "A" + model.ZeroWidthSeparator + "B"; regions[0].Text != want {
		t.Errorf("Expected %q, got %q", want, regions[0].Text)
	}
	if !regions[0].Merged {
		t.Error("Expected a merged group")
	}
}

func TestRegions_NoMerge(t *testing.T) {
	regions, err := FromRegions(sameLine()).NoMerge().Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 2 {
		t.Errorf("Expected 2 regions, got %d", len(regions))
	}
}

func TestRegions_AssignsIDs(t *testing.T) {
	in := []model.Region{{Text: "x", BBox: model.NewBBox(0, 0, 0.1, 0.1)}}
	regions, err := FromRegions(in).Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if regions[0].ID == "" {
		t.Error("Expected an ID to be assigned")
	}
	if in[0].ID != "" {
		t.Error("Expected input to be left alone")
	}
}

func TestRegions_StableIDsAcrossCalls(t *testing.T) {
	in := []model.Region{
		{Text: "A", BBox: model.NewBBox(0, 0, 0.1, 0.05)},
		{Text: "B", BBox: model.NewBBox(0.11, 0, 0.1, 0.05)},
		{Text: "C", BBox: model.NewBBox(0.5, 0.5, 0.1, 0.05)},
	}
	p := FromRegions(in).Measurer(gridMeasurer)

	first, err := p.Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	second, err := p.Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Expected 2 entries, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("Expected entry %d to keep ID %q, got %q", i, first[i].ID, second[i].ID)
		}
	}

	layout, err := p.Layout(1000, 800)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	for i, b := range layout.Boxes {
		if b.Region.ID != first[i].ID {
			t.Errorf("Expected layout entry %d to have ID %q, got %q", i, first[i].ID, b.Region.ID)
		}
	}

	// IDs read from one terminal call address entries in the next
	raw, err := p.NoMerge().Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	layout, err = p.NoMerge().Delete(raw[2].ID).Layout(1000, 800)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(layout.Boxes) != 2 {
		t.Errorf("Expected delete by ID to leave 2 boxes, got %d", len(layout.Boxes))
	}
}

func TestPipelineIsImmutable(t *testing.T) {
	base := FromRegions(sameLine())
	_ = base.NoMerge()

	regions, err := base.Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 1 {
		t.Errorf("Expected base pipeline to keep merging, got %d regions", len(regions))
	}
}

func TestLayout(t *testing.T) {
	layout, err := FromRegions(sameLine()).Measurer(gridMeasurer).Layout(1000, 800)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if layout.Input != 2 || layout.Groups != 1 {
		t.Errorf("Expected 2 inputs and 1 group, got %d and %d", layout.Input, layout.Groups)
	}
	if len(layout.Boxes) != 1 {
		t.Fatalf("Expected 1 box, got %d", len(layout.Boxes))
	}
	b := layout.Boxes[0]
	if !approx(b.Rect.Width, 210) || !approx(b.Rect.Height, 40) {
		t.Errorf("Expected 210x40 box, got %vx%v", b.Rect.Width, b.Rect.Height)
	}
	if b.FontSize <= 0 {
		t.Errorf("Expected a fitted font size, got %d", b.FontSize)
	}
	if !b.Region.Merged || b.Region.ForcedOrientation != model.OrientationHorizontal {
		t.Errorf("Expected a horizontal group, got %+v", b.Region)
	}
}

func TestLayout_InvalidSize(t *testing.T) {
	_, err := FromRegions(sameLine()).Layout(0, 100)
	if !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Expected ErrInvalidSize, got %v", err)
	}
}

func TestLayout_Edits(t *testing.T) {
	regions := append(sameLine(), model.Region{ID: "c", Text: "C", BBox: model.NewBBox(0.5, 0.5, 0.1, 0.05)})

	layout, err := FromRegions(regions).
		NoMerge().
		Measurer(gridMeasurer).
		Delete("c", "missing").
		MergeIDs("b", "a").
		Layout(1000, 800)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(layout.Boxes) != 1 {
		t.Fatalf("Expected 1 box after edits, got %d", len(layout.Boxes))
	}
	b := layout.Boxes[0]
	if want := "B" + model.ZeroWidthSeparator + "A"; b.Region.Text != want {
		t.Errorf("Expected selection order %q, got %q", want, b.Region.Text)
	}
	if b.Region.ForcedOrientation != model.OrientationHorizontal {
		t.Errorf("Expected horizontal group, got %s", b.Region.ForcedOrientation)
	}
	if b.FontSize <= 0 {
		t.Error("Expected the merged group to be autosized")
	}
}

func TestLayout_SingleMergeIsNoOp(t *testing.T) {
	layout, err := FromRegions(sameLine()).NoMerge().Measurer(gridMeasurer).MergeIDs("a").Layout(1000, 800)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if len(layout.Boxes) != 2 {
		t.Errorf("Expected 2 boxes, got %d", len(layout.Boxes))
	}
}

func TestFromJSON(t *testing.T) {
	payload := []byte(`[
		{"text": "A", "tightBoundingBox": {"x": 0, "y": 0, "width": 0.1, "height": 0.05}},
		{"text": "B", "tightBoundingBox": {"x": 0.11, "y": 0, "width": 0.1, "height": 0.05}}
	]`)
	regions, err := FromJSON(payload).Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 1 {
		t.Errorf("Expected 1 group, got %d", len(regions))
	}

	_, err = FromJSON([]byte(`{"error": "model unavailable"}`)).Layout(100, 100)
	if !errors.Is(err, ocrserver.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	f := &fakeFetcher{regions: sameLine()}
	regions, err := Fetch(context.Background(), f, "http://img/1.png").Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if f.src != "http://img/1.png" {
		t.Errorf("Expected source to be passed through, got %q", f.src)
	}
	if len(regions) != 1 {
		t.Errorf("Expected 1 group, got %d", len(regions))
	}

	boom := errors.New("boom")
	_, err = Fetch(context.Background(), &fakeFetcher{err: boom}, "x").Regions()
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	cfg := cluster.DefaultConfig()
	cfg.FontRatio = 0.5
	if _, err := FromRegions(sameLine()).ClusterConfig(cfg).Regions(); err == nil {
		t.Error("Expected error for invalid cluster config")
	}

	p := autosize.DefaultPolicy()
	p.MaxSize = 0
	if _, err := FromRegions(sameLine()).Policy(p).Layout(100, 100); err == nil {
		t.Error("Expected error for invalid policy")
	}
}

func TestSettings(t *testing.T) {
	s := config.Default()
	s.AutoMergeEnabled = false
	regions, err := FromRegions(sameLine()).Settings(s).Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 2 {
		t.Errorf("Expected merging disabled by settings, got %d regions", len(regions))
	}

	s = config.Default()
	s.AddSpaceOnMerge = true
	regions, err = FromRegions(sameLine()).Settings(s).Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(regions) != 1 || regions[0].Text != "A B" {
		t.Errorf("Expected space-joined group, got %+v", regions)
	}
}

func TestMust(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Must to panic")
		}
	}()
	Must(FromRegions(nil).Layout(-1, 1))
}
