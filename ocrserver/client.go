package ocrserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tsawler/ocroverlay/internal/logging"
)

const (
	// DefaultBaseURL is where a locally started server listens.
	DefaultBaseURL = "http://127.0.0.1:3000"

	// DefaultOCRTimeout bounds a recognition request.
	DefaultOCRTimeout = 45 * time.Second

	// DefaultRequestTimeout bounds the cache and chapter requests.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultStatusTimeout bounds a status check.
	DefaultStatusTimeout = 5 * time.Second
)

// maxBodySize bounds a response body; larger bodies fail with
// ErrResponseTooLarge.
var maxBodySize int64 = 32 << 20

// Credentials authenticate the OCR server against the image source.
type Credentials struct {
	User     string
	Password string
}

// IsZero reports whether no user is set.
func (c Credentials) IsZero() bool {
	return c.User == ""
}

// Client talks to the OCR server.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          Credentials
	cache          Cache
	log            *logging.Logger
	ocrTimeout     time.Duration
	requestTimeout time.Duration
	statusTimeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Timeouts are applied per request
// through contexts, so the client's own Timeout may be left zero.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials sets the image source credentials forwarded to the server.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithCache consults cache before each recognition request.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithOCRTimeout sets the recognition timeout (default: 45s)
func WithOCRTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.ocrTimeout = d
	}
}

// WithRequestTimeout sets the timeout of the other requests (default: 10s)
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		log:            logging.Discard(),
		ocrTimeout:     DefaultOCRTimeout,
		requestTimeout: DefaultRequestTimeout,
		statusTimeout:  DefaultStatusTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ocrURL builds the recognition URL for an image source.
func (c *Client) ocrURL(src string) string {
	q := url.Values{}
	q.Set("url", src)
	if !c.creds.IsZero() {
		q.Set("user", c.creds.User)
		q.Set("pass", c.creds.Password)
	}
	return c.baseURL + "/ocr?" + q.Encode()
}

// Status describes the server's state.
type Status struct {
	Status       string `json:"status"`
	ItemsInCache int    `json:"items_in_cache"`

	// ActiveJobs is nil when the server does not report preprocessing jobs
	ActiveJobs *int `json:"active_preprocess_jobs,omitempty"`
}

// Running reports whether the server says it is running.
func (s *Status) Running() bool {
	return s.Status == "running"
}

// Status queries the server's state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.baseURL, nil, c.statusTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &FetchError{Kind: KindStatus, URL: c.baseURL, Err: fmt.Errorf("status %d", status)}
	}
	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, &FetchError{Kind: KindPayload, URL: c.baseURL, Err: err}
	}
	return &s, nil
}

type messageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PurgeCache deletes every cached result on the server, and in the local
// cache if it supports purging. It returns the server's message.
func (c *Client) PurgeCache(ctx context.Context) (string, error) {
	u := c.baseURL + "/purge-cache"
	_, body, err := c.do(ctx, http.MethodPost, u, nil, c.requestTimeout)
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &FetchError{Kind: KindPayload, URL: u, Err: err}
	}
	if resp.Error != "" {
		return "", &FetchError{Kind: KindServer, URL: u, Err: errors.New(resp.Error)}
	}

	if p, ok := c.cache.(Purger); ok {
		n, err := p.Purge(ctx)
		if err != nil {
			c.log.Warn("failed to purge local cache", "error", err)
		} else {
			c.log.Debug("purged local cache", "entries", n)
		}
	}
	return resp.Message, nil
}

// PreprocessChapter asks the server to recognize every page under
// chapterBaseURL in the background. The server must accept the job.
func (c *Client) PreprocessChapter(ctx context.Context, chapterBaseURL string) error {
	u := c.baseURL + "/preprocess-chapter"
	payload, err := json.Marshal(map[string]string{
		"baseUrl": chapterBaseURL,
		"user":    c.creds.User,
		"pass":    c.creds.Password,
	})
	if err != nil {
		return fmt.Errorf("ocrserver: failed to encode request: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, u, payload, c.requestTimeout)
	if err != nil {
		return err
	}
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &FetchError{Kind: KindPayload, URL: u, Err: err}
	}
	if status == http.StatusAccepted && resp.Status == "accepted" {
		c.log.Info("chapter job accepted", "chapter", chapterBaseURL)
		return nil
	}
	if resp.Error != "" {
		return &FetchError{Kind: KindServer, URL: u, Err: errors.New(resp.Error)}
	}
	return &FetchError{Kind: KindStatus, URL: u, Err: fmt.Errorf("server responded with status %d", status)}
}

// do sends one request bounded by timeout and returns the status code and
// body.
func (c *Client) do(ctx context.Context, method, u string, payload []byte, timeout time.Duration) (int, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, &FetchError{Kind: KindConnection, URL: u, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &FetchError{Kind: classify(ctx, err), URL: u, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return 0, nil, &FetchError{Kind: classify(ctx, err), URL: u, Err: err}
	}
	if int64(len(data)) > maxBodySize {
		return 0, nil, &FetchError{Kind: KindPayload, URL: u, Err: fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxBodySize)}
	}
	return resp.StatusCode, data, nil
}

func classify(ctx context.Context, err error) Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
