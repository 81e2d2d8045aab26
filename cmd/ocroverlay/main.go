// Command ocroverlay recognizes, clusters and lays out text regions of manga
// pages, and talks to the OCR server and AnkiConnect.
//
// Usage: ocroverlay <command> [options]
//
// Commands:
//
//	layout      fetch or recognize one image and print its laid-out boxes
//	scan        discover page images in a reader page and render them all
//	status      show the OCR server status
//	purge       purge the OCR server cache
//	preprocess  queue a chapter for background recognition
//	export      send an image to the newest Anki note
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/tsawler/ocroverlay"
	"github.com/tsawler/ocroverlay/config"
	"github.com/tsawler/ocroverlay/internal/logging"
	"github.com/tsawler/ocroverlay/ocr"
	"github.com/tsawler/ocroverlay/ocrserver"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"layout", "fetch or recognize one image and print its laid-out boxes", runLayout},
	{"scan", "discover page images in a reader page and render them all", runScan},
	{"status", "show the OCR server status", runStatus},
	{"purge", "purge the OCR server cache", runPurge},
	{"preprocess", "queue a chapter for background recognition", runPreprocess},
	{"export", "send an image to the newest Anki note", runExport},
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ocroverlay <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", c.name, c.summary)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(ctx, os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "ocroverlay %s: %v\n", c.name, err)
				os.Exit(1)
			}
			return
		}
	}
	usage()
	os.Exit(2)
}

// common holds the flags shared by every command.
type common struct {
	settingsFile string
	envFile      string
	verbose      bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.settingsFile, "settings", "", "JSON settings file")
	fs.StringVar(&c.envFile, "env", ".env", "dotenv file with OCROVERLAY_* variables")
	fs.BoolVar(&c.verbose, "v", false, "verbose output")
}

// app is the loaded configuration of one invocation.
type app struct {
	settings config.Settings
	log      *logging.Logger
	closers  []io.Closer
}

func (c *common) load() (*app, error) {
	s, err := config.Load(c.settingsFile, c.envFile)
	if err != nil {
		return nil, err
	}
	log := logging.New("ocroverlay", logging.WithDebug(c.verbose || s.DebugMode))
	return &app{settings: s, log: log}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}

// server returns an OCR server client, with the Redis cache when one is
// configured.
func (a *app) server() (*ocrserver.Client, error) {
	opts := []ocrserver.Option{
		ocrserver.WithCredentials(a.settings.Credentials()),
		ocrserver.WithLogger(a.log.Named("ocrserver")),
	}
	if a.settings.RedisURL != "" {
		cache, err := ocrserver.NewRedisCache(a.settings.RedisURL, ocrserver.DefaultCacheTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache)
		opts = append(opts, ocrserver.WithCache(cache))
	}
	return ocrserver.NewClient(a.settings.OCRServerURL, opts...), nil
}

// fetcher returns the local recognizer when local is set, the OCR server
// otherwise.
func (a *app) fetcher(local bool, lang string) (ocroverlay.Fetcher, error) {
	if !local {
		srv, err := a.server()
		if err != nil {
			return nil, err
		}
		return srv, nil
	}
	client, err := ocr.New()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client)
	if lang != "" {
		if err := client.SetLanguage(lang); err != nil {
			return nil, err
		}
	}
	return ocr.NewRecognizer(client, &http.Client{Timeout: ocrserver.DefaultOCRTimeout}), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
