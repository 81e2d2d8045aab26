package ocrserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/ocroverlay/model"
)

// FetchRegions recognizes the image at src. Cached responses are used when
// a cache is configured; fresh responses are cached only when they decode.
func (c *Client) FetchRegions(ctx context.Context, src string) ([]model.Region, error) {
	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, src)
		switch {
		case err != nil:
			c.log.Warn("cache lookup failed", "src", src, "error", err)
		case ok:
			if regions, err := DecodeRegions(data); err == nil {
				c.log.Debug("cache hit", "src", src, "regions", len(regions))
				return regions, nil
			}
			c.log.Warn("ignoring unreadable cache entry", "src", src)
		}
	}

	u := c.ocrURL(src)
	status, body, err := c.do(ctx, http.MethodGet, u, nil, c.ocrTimeout)
	if err != nil {
		return nil, err
	}

	regions, err := DecodeRegions(body)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.URL = u
			if fe.Kind == KindPayload && status != http.StatusOK {
				fe.Kind = KindStatus
				fe.Err = fmt.Errorf("status %d: %w", status, fe.Err)
			}
		}
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, src, body); err != nil {
			c.log.Warn("cache store failed", "src", src, "error", err)
		}
	}
	c.log.Debug("recognized image", "src", src, "regions", len(regions))
	return regions, nil
}

// DecodeRegions parses a recognition response. The payload must be a JSON
// array of regions; an object carrying an "error" field is reported as a
// server error. Text is normalized to NFC and every region gets an ID.
func DecodeRegions(data []byte) ([]model.Region, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &FetchError{Kind: KindPayload, Err: errors.New("empty response")}
	}

	if data[0] == '{' {
		var resp messageResponse
		if err := json.Unmarshal(data, &resp); err == nil && resp.Error != "" {
			return nil, &FetchError{Kind: KindServer, Err: errors.New(resp.Error)}
		}
		return nil, &FetchError{Kind: KindPayload, Err: errors.New("response was not a region array")}
	}
	if data[0] != '[' {
		return nil, &FetchError{Kind: KindPayload, Err: errors.New("response was not a region array")}
	}

	var regions []model.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, &FetchError{Kind: KindPayload, Err: err}
	}
	for i := range regions {
		regions[i].Text = norm.NFC.String(regions[i].Text)
		regions[i].EnsureID()
	}
	return regions, nil
}
