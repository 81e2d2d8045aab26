package anki

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/tsawler/ocroverlay/internal/logging"
)

const (
	// DefaultURL is where AnkiConnect listens.
	DefaultURL = "http://127.0.0.1:8765"

	// DefaultImageField is the note field that receives the image.
	DefaultImageField = "Image"

	// DefaultTimeout bounds each AnkiConnect request.
	DefaultTimeout = 15 * time.Second

	apiVersion = 6
)

var (
	// ErrNoRecentNote is returned when no note was added today.
	ErrNoRecentNote = errors.New("anki: no recently added cards found")

	// ErrNoImageField is returned when the target field name is empty.
	ErrNoImageField = errors.New("anki: image field is not set")

	// ErrEmptyImage is returned for images with no pixels.
	ErrEmptyImage = errors.New("anki: image is empty")
)

// Client talks to AnkiConnect.
type Client struct {
	url        string
	field      string
	httpClient *http.Client
	timeout    time.Duration
	maxWidth   int
	now        func() time.Time
	log        *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithImageField sets the note field that receives the image.
func WithImageField(field string) Option {
	return func(c *Client) {
		c.field = field
	}
}

// WithTimeout sets the per-request timeout (default: 15s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxWidth downscales exported images wider than px. Zero keeps the
// original size.
func WithMaxWidth(px int) Option {
	return func(c *Client) {
		c.maxWidth = px
	}
}

// WithClock sets the time source used to name media files.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client for the AnkiConnect endpoint at url.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		field:      DefaultImageField,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		now:        time.Now,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Invoke runs one AnkiConnect action and decodes its result into out, which
// may be nil.
func (c *Client) Invoke(ctx context.Context, action string, params, out any) error {
	if params == nil {
		params = struct{}{}
	}
	payload, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("anki: failed to encode %s: %w", action, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("anki: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("anki: %s timed out: %w", action, err)
		}
		return fmt.Errorf("anki: connection failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anki: reading %s response: %w", action, err)
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("anki: failed to parse %s response: %w", action, err)
	}
	if r.Error != nil && *r.Error != "" {
		return fmt.Errorf("anki: %s: %s", action, *r.Error)
	}
	if out != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("anki: unexpected %s result: %w", action, err)
		}
	}
	return nil
}

// StoreMedia saves data under filename in the collection's media folder.
func (c *Client) StoreMedia(ctx context.Context, filename string, data []byte) error {
	return c.Invoke(ctx, "storeMediaFile", map[string]string{
		"filename": filename,
		"data":     base64.StdEncoding.EncodeToString(data),
	}, nil)
}

// NewestNote returns the ID of the most recently added note of today.
func (c *Client) NewestNote(ctx context.Context) (int64, error) {
	var ids []int64
	if err := c.Invoke(ctx, "findNotes", map[string]string{"query": "added:1"}, &ids); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrNoRecentNote
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids[0], nil
}

// UpdateField sets one field of a note.
func (c *Client) UpdateField(ctx context.Context, noteID int64, field, value string) error {
	params := map[string]any{
		"note": map[string]any{
			"id":     noteID,
			"fields": map[string]string{field: value},
		},
	}
	return c.Invoke(ctx, "updateNoteFields", params, nil)
}

// ExportImage stores img as a PNG and attaches it to the image field of the
// newest note. It returns the media filename.
func (c *Client) ExportImage(ctx context.Context, img image.Image) (string, error) {
	if c.field == "" {
		return "", ErrNoImageField
	}
	data, err := c.encode(img)
	if err != nil {
		return "", err
	}

	filename := "screenshot_" + strconv.FormatInt(c.now().UnixMilli(), 10) + ".png"
	if err := c.StoreMedia(ctx, filename, data); err != nil {
		return "", err
	}
	noteID, err := c.NewestNote(ctx)
	if err != nil {
		return "", err
	}
	if err := c.UpdateField(ctx, noteID, c.field, `<img src="`+filename+`">`); err != nil {
		return "", err
	}
	c.log.Info("exported image", "file", filename, "note", noteID, "bytes", len(data))
	return filename, nil
}

// ExportRegion crops img to r before exporting it.
func (c *Client) ExportRegion(ctx context.Context, img image.Image, r image.Rectangle) (string, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return "", ErrEmptyImage
	}
	return c.ExportImage(ctx, imaging.Crop(img, r))
}

func (c *Client) encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if c.maxWidth > 0 && img.Bounds().Dx() > c.maxWidth {
		img = imaging.Resize(img, c.maxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("anki: failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
