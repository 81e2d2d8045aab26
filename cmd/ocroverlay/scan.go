package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/discovery"
	"github.com/tsawler/ocroverlay/eventloop"
	"github.com/tsawler/ocroverlay/lifecycle"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/overlay"
	"github.com/tsawler/ocroverlay/surface"
)

// scannedImage is one entry of the scan report.
type scannedImage struct {
	ID      string        `json:"id"`
	Src     string        `json:"src"`
	State   string        `json:"state"`
	Regions model.Dataset `json:"regions,omitempty"`
}

type scanReport struct {
	URL          string         `json:"url"`
	Site         string         `json:"site"`
	Images       []scannedImage `json:"images"`
	ChapterLinks []string       `json:"chapterLinks,omitempty"`
	Fetches      int            `json:"fetches"`
	Failures     int            `json:"failures"`
}

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	var c common
	c.register(fs)
	pageURL := fs.String("url", "", "reader page URL")
	htmlFile := fs.String("html", "", "read the page from a file instead of downloading it")
	local := fs.Bool("local", false, "recognize locally with Tesseract instead of the OCR server")
	lang := fs.String("lang", "jpn+jpn_vert", "Tesseract languages for -local")
	timeout := fs.Duration("timeout", 2*time.Minute, "give up on images still pending after this long")
	out := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)

	a, err := c.load()
	if err != nil {
		return err
	}
	defer a.Close()

	if *pageURL == "" {
		return errors.New("-url is required")
	}
	body, err := readPage(ctx, *pageURL, *htmlFile)
	if err != nil {
		return err
	}
	defer body.Close()

	page, err := discovery.Scan(body, *pageURL, a.settings.Sites)
	if err != nil {
		return err
	}
	site, _ := discovery.MatchSite(a.settings.Sites, *pageURL)
	a.log.Info("scanned page", "url", *pageURL, "site", site.URLPattern, "images", len(page.Images), "containers", len(page.Containers))

	for i, img := range page.Images {
		if img.Loaded() {
			continue
		}
		size, err := naturalSize(ctx, img.Src)
		if err != nil {
			a.log.Warn("failed to load image", "image", img.ID, "error", err)
			continue
		}
		page.Images[i].Natural = model.Size{Width: float64(size.X), Height: float64(size.Y)}
	}

	f, err := a.fetcher(*local, *lang)
	if err != nil {
		return err
	}

	runCtx, cancel := withTimeout(ctx, *timeout)
	defer cancel()

	loop := eventloop.New()
	h := surface.NewHeadless(autosize.NewDefaultMeasurer())
	ctrl := lifecycle.NewController(h, f, loop,
		lifecycle.WithScheduler(loop),
		lifecycle.WithClusterConfig(a.settings.ClusterConfig()),
		lifecycle.WithMerge(a.settings.AutoMergeEnabled),
		lifecycle.WithPolicy(a.settings.AutosizePolicy()),
		lifecycle.WithLogger(a.log.Named("lifecycle")),
		lifecycle.WithContext(runCtx),
	)

	tracker := discovery.NewTracker()
	loop.Post(func() {
		stackImages(h, page.Images)
		discovery.Dispatch(tracker.Update(page), ctrl)
	})

	done := make(chan struct{})
	go waitSettled(runCtx, loop, ctrl, done)

	loopCtx, stopLoop := context.WithCancel(runCtx)
	go func() {
		<-done
		stopLoop()
	}()
	loop.Run(loopCtx)

	report := scanReport{
		URL:          page.URL,
		Site:         site.URLPattern,
		ChapterLinks: page.ChapterLinks,
		Fetches:      ctrl.Fetches(),
		Failures:     ctrl.Failures(),
	}
	for _, img := range page.Images {
		e := scannedImage{ID: img.ID, Src: img.Src, State: "untracked"}
		if st, ok := ctrl.State(img.ID); ok {
			e.State = st.String()
		}
		if ds, ok := ctrl.Dataset(img.ID); ok {
			e.Regions = ds
		}
		report.Images = append(report.Images, e)
	}
	ctrl.Close()

	wc, err := output(*out)
	if err != nil {
		return err
	}
	defer wc.Close()
	return writeJSON(wc, report)
}

// readPage opens the page HTML from file, or downloads pageURL.
func readPage(ctx context.Context, pageURL, file string) (io.ReadCloser, error) {
	if file != "" {
		return os.Open(file)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: %s", pageURL, resp.Status)
	}
	return resp.Body, nil
}

// stackImages lays the images out top to bottom at their natural size, the
// way a long-strip reader shows them.
func stackImages(h *surface.Headless, images []surface.Image) {
	y := 0.0
	for _, img := range images {
		if !img.Loaded() {
			continue
		}
		h.SetRect(img.ID, model.Rect{Y: y, Width: img.Natural.Width, Height: img.Natural.Height})
		y += img.Natural.Height
	}
}

// waitSettled closes done once no fetch is in flight, or when ctx ends.
// Images that never loaded stay priming and do not hold it up.
func waitSettled(ctx context.Context, loop *eventloop.Loop, ctrl *lifecycle.Controller, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		settled := make(chan bool, 1)
		if !loop.Post(func() { settled <- isSettled(ctrl) }) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case ok := <-settled:
			if ok {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func isSettled(ctrl *lifecycle.Controller) bool {
	for _, id := range ctrl.Tracked() {
		st, _ := ctrl.State(id)
		if st == overlay.Pending {
			return false
		}
	}
	return true
}
