package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JustJay7/court-data-service/pkg/logger"
	"github.com/go-resty/resty/v2"
)

// DocumentClient downloads judgment documents over HTTP.
type DocumentClient struct {
	http     *resty.Client
	maxBytes int64
	logger   *logger.Logger
}

// NewDocumentClient creates a client resolving relative URLs against
// baseURL. Bodies larger than maxBytes are rejected.
func NewDocumentClient(baseURL, userAgent string, timeout time.Duration, maxBytes int64, logger *logger.Logger) *DocumentClient {
	client := resty.New()
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/pdf,*/*")
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &DocumentClient{
		http:     client,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Download fetches the document at url. At most maxBytes+1 bytes of the
// body are read.
func (c *DocumentClient) Download(ctx context.Context, url string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	raw := res.RawBody()
	defer raw.Close()

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", res.Status())
	}
	if c.maxBytes > 0 && res.RawResponse.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", c.maxBytes)
	}

	var reader io.Reader = raw
	if c.maxBytes > 0 {
		reader = io.LimitReader(raw, c.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if c.maxBytes > 0 && int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", c.maxBytes)
	}

	c.logger.Info("Document downloaded", "url", res.Request.URL, "size", len(body))
	return body, nil
}
