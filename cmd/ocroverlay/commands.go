package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"

	"github.com/disintegration/imaging"

	"github.com/tsawler/ocroverlay"
	"github.com/tsawler/ocroverlay/anki"
	"github.com/tsawler/ocroverlay/ocr"
	"github.com/tsawler/ocroverlay/ocrserver"
)

func runLayout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("layout", flag.ExitOnError)
	var c common
	c.register(fs)
	src := fs.String("src", "", "image URL or path")
	payload := fs.String("json", "", "read regions from an OCR server payload file instead of fetching")
	local := fs.Bool("local", false, "recognize locally with Tesseract instead of the OCR server")
	lang := fs.String("lang", "jpn+jpn_vert", "Tesseract languages for -local")
	width := fs.Float64("width", 0, "rendered image width (default: natural width)")
	height := fs.Float64("height", 0, "rendered image height (default: natural height)")
	noMerge := fs.Bool("no-merge", false, "skip automatic clustering")
	out := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	var p *ocroverlay.Pipeline
	switch {
	case *payload != "":
		data, err := os.ReadFile(*payload)
		if err != nil {
			return err
		}
		p = ocroverlay.FromJSON(data)
	case *src != "":
		f, err := a.fetcher(*local, *lang)
		if err != nil {
			return err
		}
		p = ocroverlay.Fetch(ctx, f, *src)
	default:
		return errors.New("one of -src or -json is required")
	}

	p = p.Settings(a.settings)
	if *noMerge {
		p = p.NoMerge()
	}

	w, h := *width, *height
	if w <= 0 || h <= 0 {
		if *src == "" {
			return errors.New("-width and -height are required without -src")
		}
		size, err := naturalSize(ctx, *src)
		if err != nil {
			return err
		}
		w, h = float64(size.X), float64(size.Y)
	}

	layout, err := p.Layout(w, h)
	if err != nil {
		return err
	}
	a.log.Info("laid out image", "image", *src, "regions", layout.Input, "groups", layout.Groups, "boxes", len(layout.Boxes))

	wc, err := output(*out)
	if err != nil {
		return err
	}
	defer wc.Close()
	return writeJSON(wc, layout)
}

// naturalSize downloads or reads an image and returns its dimensions.
func naturalSize(ctx context.Context, src string) (image.Point, error) {
	data, err := ocr.Load(ctx, &http.Client{Timeout: ocrserver.DefaultRequestTimeout}, src)
	if err != nil {
		return image.Point{}, err
	}
	return ocr.ImageSize(data)
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var c common
	c.register(fs)
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := a.server()
	if err != nil {
		return err
	}
	status, err := srv.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Running() {
		return fmt.Errorf("server at %s reports status %q", srv.BaseURL(), status.Status)
	}
	jobs := "n/a"
	if status.ActiveJobs != nil {
		jobs = fmt.Sprint(*status.ActiveJobs)
	}
	fmt.Printf("Connected to %s (cache: %d, jobs: %s)\n", srv.BaseURL(), status.ItemsInCache, jobs)
	return nil
}

func runPurge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	var c common
	c.register(fs)
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := a.server()
	if err != nil {
		return err
	}
	msg, err := srv.PurgeCache(ctx)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runPreprocess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("preprocess", flag.ExitOnError)
	var c common
	c.register(fs)
	page := fs.String("url", "", "URL of any page of the chapter")
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	base, err := ocrserver.ChapterBaseURL(*page)
	if err != nil {
		return err
	}
	srv, err := a.server()
	if err != nil {
		return err
	}
	if err := srv.PreprocessChapter(ctx, base); err != nil {
		return err
	}
	fmt.Printf("Queued %s\n", base)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var c common
	c.register(fs)
	path := fs.String("image", "", "image file to export")
	x := fs.Int("x", 0, "crop left")
	y := fs.Int("y", 0, "crop top")
	w := fs.Int("w", 0, "crop width (default: whole image)")
	h := fs.Int("h", 0, "crop height (default: whole image)")
	maxWidth := fs.Int("max-width", 0, "downscale wider images to this width")
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	if *path == "" {
		return errors.New("-image is required")
	}
	img, err := imaging.Open(*path, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}

	client := anki.NewClient(a.settings.AnkiConnectURL,
		anki.WithImageField(a.settings.AnkiImageField),
		anki.WithMaxWidth(*maxWidth),
		anki.WithLogger(a.log.Named("anki")),
	)
	var name string
	if *w > 0 && *h > 0 {
		name, err = client.ExportRegion(ctx, img, image.Rect(*x, *y, *x+*w, *y+*h))
	} else {
		name, err = client.ExportImage(ctx, img)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s\n", name)
	return nil
}
