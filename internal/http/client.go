package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ErrNotFound is returned when the server answers 404 Not Found.
var ErrNotFound = errors.New("not found")

// Client wraps HTTP operations with the downloader's configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling for small metadata requests
//   - Streaming file download to disk
//
// Example usage:
//
//	client := NewClient("sra-downloader")
//
//	// Fetch a runinfo manifest
//	csv, err := client.GetString(ctx, endpoint, url.Values{"acc": {"PRJNA1"}})
//
//	// Download a run archive
//	err = client.DownloadFile(ctx, archiveURL, "/data/SampleA/SRR1.sra")
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	userAgent      string
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 60 second timeout for Get requests
//   - no overall timeout for file downloads, which are bounded by ctx
//   - the given User-Agent header
func NewClient(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		downloadClient: &http.Client{},
		userAgent:      userAgent,
	}
}

// Get performs a GET request and returns the response body as bytes.
//
// query is appended to rawURL when non-empty.
//
// Returns an error if:
//   - The request fails
//   - The response status is 404 (the error wraps ErrNotFound)
//   - The response status is not 200 OK
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", rawURL, ErrNotFound)
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like
// CSV manifests.
func (c *Client) GetString(ctx context.Context, rawURL string, query url.Values) (string, error) {
	body, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DownloadFile downloads a file to the specified path.
//
// The content is streamed to "<destPath>.part" and renamed to destPath only
// once the body has been read completely, so destPath exists if and only if
// the download succeeded. The partial file is removed on failure.
func (c *Client) DownloadFile(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	partPath := destPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return err
	}

	_, err = io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partPath)
		return err
	}

	return os.Rename(partPath, destPath)
}
