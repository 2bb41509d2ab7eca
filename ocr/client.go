package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
)

// Client submits documents to the external OCR service. The primary
// endpoint is tried first; any transport or decode failure falls over
// to the fallback endpoint with its own timeout.
type Client struct {
	cfg        config.OcrConfig
	httpClient *http.Client
}

func NewClient(cfg config.OcrConfig) *Client {
	return &Client{
		cfg: cfg,
		// per-call timeouts come from request contexts
		httpClient: &http.Client{},
	}
}

// Recognize sends the file to the OCR service and returns the
// canonical document plus the unmodified response bytes for the audit
// record. Both endpoints failing returns the fallback's error.
func (c *Client) Recognize(ctx context.Context, filename string, fileData []byte) (*Document, []byte, error) {

	logger := config.GetLogger()

	if c.cfg.Endpoint != "" {
		doc, raw, err := c.post(ctx, c.cfg.Endpoint, c.cfg.RequestTimeout, filename, fileData)
		if err == nil {
			return doc, raw, nil
		}
		config.LogError(logger, "client.go", "Recognize", "primary endpoint", c.cfg.Endpoint, err)
	}

	doc, raw, err := c.post(ctx, c.cfg.FallbackEndpoint, c.cfg.FallbackTimeout, filename, fileData)
	if err != nil {
		config.LogError(logger, "client.go", "Recognize", "fallback endpoint", c.cfg.FallbackEndpoint, err)
		return nil, nil, err
	}
	return doc, raw, nil
}

func (c *Client) post(ctx context.Context, endpoint string, timeout time.Duration, filename string, fileData []byte) (*Document, []byte, error) {

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(fileData); err != nil {
		return nil, nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("ocr service returned status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var parsed RawResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("decoding ocr response: %w", err)
	}

	return parsed.Normalize(), raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
