//go:build ocr

// Package ocr recognizes text regions in page images locally.
//
// This package wraps the Tesseract OCR engine via gosseract. It requires
// Tesseract and its language data to be installed on the system. On macOS,
// install via:
//
//	brew install tesseract tesseract-lang
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr tesseract-ocr-jpn tesseract-ocr-jpn-vert
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for OCR operations. It is not safe for concurrent
// use; Recognizer serializes access to it.
type Client struct {
	client *gosseract.Client
	level  Level
}

// New creates a new OCR client that reports text lines.
// The client should be closed when no longer needed to release resources.
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient(), level: LevelLine}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage performs OCR on image data (PNG, TIFF, JPEG, etc.).
// Returns the recognized text with leading/trailing whitespace trimmed.
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// RecognizeWords performs OCR on image data and returns every recognized
// span at the client's level with its pixel bounds.
func (c *Client) RecognizeWords(imageData []byte) ([]Word, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	level := gosseract.RIL_TEXTLINE
	if c.level == LevelWord {
		level = gosseract.RIL_WORD
	}
	boxes, err := c.client.GetBoundingBoxes(level)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		words = append(words, Word{
			Text:       box.Word,
			Bounds:     box.Box,
			Confidence: box.Confidence,
		})
	}
	return words, nil
}

// SetLanguage sets the language(s) for OCR recognition.
// Multiple languages can be specified as a "+" separated string (e.g., "jpn+jpn_vert").
func (c *Client) SetLanguage(lang string) error {
	return c.client.SetLanguage(strings.Split(lang, "+")...)
}

// SetPageSegMode sets the page segmentation mode.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return c.client.SetPageSegMode(gosseract.PageSegMode(mode))
}

// SetLevel selects whether words or whole lines are reported.
func (c *Client) SetLevel(level Level) {
	c.level = level
}
