package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/tsawler/ocroverlay/model"
)

// DefaultMinConfidence drops spans Tesseract is unsure about.
const DefaultMinConfidence = 30.0

// ErrImageTooLarge is returned by Load for downloads over the size limit.
var ErrImageTooLarge = errors.New("ocr: image too large")

var maxImageSize int64 = 64 << 20

// Recognizer fetches an image and recognizes it with a local Client. It has
// the same FetchRegions contract as the OCR server client, so it can stand
// in for it offline.
type Recognizer struct {
	mu            sync.Mutex
	client        *Client
	httpClient    *http.Client
	minConfidence float64
}

// NewRecognizer wraps client. A nil httpClient uses http.DefaultClient.
func NewRecognizer(client *Client, httpClient *http.Client) *Recognizer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Recognizer{client: client, httpClient: httpClient, minConfidence: DefaultMinConfidence}
}

// SetMinConfidence changes the confidence threshold (0 to 100).
func (r *Recognizer) SetMinConfidence(c float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minConfidence = c
}

// FetchRegions loads src, an http(s) URL or a file path, and returns its
// text regions.
func (r *Recognizer) FetchRegions(ctx context.Context, src string) ([]model.Region, error) {
	data, err := Load(ctx, r.httpClient, src)
	if err != nil {
		return nil, err
	}
	size, err := ImageSize(data)
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to decode %s: %w", src, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil, ErrOCRNotEnabled
	}
	words, err := r.client.RecognizeWords(data)
	if err != nil {
		return nil, err
	}
	return WordsToRegions(words, size, r.minConfidence), nil
}

// Load reads image bytes from an http(s) URL or a local path.
func Load(ctx context.Context, hc *http.Client, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(strings.TrimPrefix(src, "file://"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: fetching %s returned status %d", src, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("ocr: reading %s: %w", src, err)
	}
	if int64(len(data)) > maxImageSize {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrImageTooLarge, src, maxImageSize)
	}
	return data, nil
}
