package ocr

import (
	"bytes"
	"errors"
	"image"
	"strings"

	// Decoders for the page formats readers serve
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/ocroverlay/model"
)

// ErrOCRNotEnabled is returned when OCR functions are called but OCR support
// was not compiled in. Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// PageSegMode represents page segmentation modes for OCR.
// These control how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes, matching Tesseract's numbering.
const (
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
	PSM_SPARSE_TEXT_OSD        PageSegMode = 12 // Sparse text with OSD
)

// Level selects the granularity of recognized spans.
type Level int

const (
	// LevelLine reports one span per text line.
	LevelLine Level = iota
	// LevelWord reports one span per word.
	LevelWord
)

// Word is one recognized span in pixel coordinates.
type Word struct {
	Text string

	// Bounds is the span's box in image pixels
	Bounds image.Rectangle

	// Confidence is Tesseract's score, 0 to 100
	Confidence float64
}

// ImageSize decodes just enough of an image to learn its dimensions.
func ImageSize(imageData []byte) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// WordsToRegions converts pixel spans of an image of the given size into
// normalized regions. Blank spans, spans outside the image and spans below
// minConfidence are dropped. Text is normalized to NFC and every region gets
// a fresh ID.
func WordsToRegions(words []Word, size image.Point, minConfidence float64) []model.Region {
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	frame := image.Rectangle{Max: size}
	w, h := float64(size.X), float64(size.Y)

	regions := make([]model.Region, 0, len(words))
	for _, word := range words {
		text := strings.TrimSpace(word.Text)
		if text == "" || word.Confidence < minConfidence {
			continue
		}
		b := word.Bounds.Canon().Intersect(frame)
		if b.Empty() {
			continue
		}
		regions = append(regions, model.NewRegion(norm.NFC.String(text), model.NewBBox(
			float64(b.Min.X)/w,
			float64(b.Min.Y)/h,
			float64(b.Dx())/w,
			float64(b.Dy())/h,
		)))
	}
	return regions
}
