// Package ocroverlay provides a fluent API for turning recognized text
// regions into a laid-out overlay: clustering lines into speech bubbles,
// placing boxes on an image of a given size and fitting font sizes.
//
// Basic usage:
//
//	layout, err := ocroverlay.FromRegions(regions).Layout(800, 1200)
//	if err != nil {
//	    // handle error
//	}
//	for _, b := range layout.Boxes {
//	    fmt.Println(b.Region.Text, b.Rect, b.FontSize)
//	}
//
// With options:
//
//	layout, err := ocroverlay.FromJSON(payload).
//	    ClusterConfig(cfg).
//	    Policy(policy).
//	    Delete(noiseID).
//	    Layout(800, 1200)
//
// The lifecycle package runs the same pipeline continuously against a live
// rendering surface.
package ocroverlay

import (
	"context"
	"fmt"

	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/ocrserver"
)

// Fetcher produces the regions recognized in an image. ocrserver.Client and
// ocr.Recognizer implement it.
type Fetcher interface {
	FetchRegions(ctx context.Context, src string) ([]model.Region, error)
}

// FromRegions starts a pipeline over regions. The slice is copied and
// regions without an ID get one here, so every terminal operation of the
// pipeline sees the same IDs.
//
// Example:
//
//	regions, err := ocroverlay.FromRegions(raw).Regions()
func FromRegions(regions []model.Region) *Pipeline {
	own := make([]model.Region, len(regions))
	for i, r := range regions {
		r.EnsureID()
		own[i] = r
	}
	return &Pipeline{
		regions: own,
		options: defaultOptions(),
	}
}

// FromJSON starts a pipeline over an OCR server payload. Decoding errors
// surface from the terminal operation.
//
// Example:
//
//	layout, err := ocroverlay.FromJSON(body).Layout(1000, 1500)
func FromJSON(data []byte) *Pipeline {
	regions, err := ocrserver.DecodeRegions(data)
	p := FromRegions(regions)
	p.err = err
	return p
}

// Fetch starts a pipeline over the regions f recognizes in src.
//
// Example:
//
//	client := ocrserver.NewClient("http://127.0.0.1:3000")
//	layout, err := ocroverlay.Fetch(ctx, client, imageURL).Layout(w, h)
func Fetch(ctx context.Context, f Fetcher, src string) *Pipeline {
	regions, err := f.FetchRegions(ctx, src)
	p := FromRegions(regions)
	if err != nil {
		p.err = fmt.Errorf("fetching regions: %w", err)
	}
	return p
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	layout := ocroverlay.Must(ocroverlay.FromRegions(r).Layout(800, 600))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
