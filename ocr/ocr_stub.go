//go:build !ocr

// Package ocr recognizes text regions in page images locally.
//
// Without the "ocr" build tag every recognition call fails with
// ErrOCRNotEnabled, and the OCR server remains the only region source. Build
// with
//
//	go build -tags ocr
//
// after installing Tesseract and its Japanese data, for example
//
//	apt-get install tesseract-ocr tesseract-ocr-jpn tesseract-ocr-jpn-vert
package ocr

// Client stands in for the Tesseract client in builds without OCR.
type Client struct{}

// New always fails with ErrOCRNotEnabled.
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close does nothing. A nil client is fine.
func (c *Client) Close() error {
	return nil
}

func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

func (c *Client) RecognizeWords(imageData []byte) ([]Word, error) {
	return nil, ErrOCRNotEnabled
}

func (c *Client) SetLanguage(lang string) error {
	return ErrOCRNotEnabled
}

func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return ErrOCRNotEnabled
}

func (c *Client) SetLevel(level Level) {}
