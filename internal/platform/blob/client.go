// Package blob talks to the image blob store.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrNotConfigured is returned when no blob endpoint is configured.
var ErrNotConfigured = errors.New("blob store not configured")

// Store uploads and removes blobs.
type Store interface {
	Put(ctx context.Context, name, contentType string, body []byte) (*Object, error)
	Delete(ctx context.Context, rawURL string) error
}

// Object describes a stored blob.
type Object struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// Config for the HTTP blob client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryMax   int
	RetryWait  time.Duration
	HTTPClient *http.Client
}

// Client is a Store backed by an HTTP blob API: PUT /<name> stores a blob,
// POST /delete removes blobs by URL.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

var _ Store = (*Client)(nil)

// NewClient builds a retrying blob client.
func NewClient(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	if cfg.RetryWait > 0 {
		retryClient.RetryWaitMin = cfg.RetryWait
		retryClient.RetryWaitMax = 4 * cfg.RetryWait
	}
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	}
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}
	retryClient.Logger = nil

	return &Client{
		client:  retryClient.StandardClient(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

// Put stores body under name and returns the public object.
func (c *Client) Put(ctx context.Context, name, contentType string, body []byte) (*Object, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	endpoint := c.baseURL + "/" + url.PathEscape(path.Base(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("blob: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, statusError("put", resp)
	}
	var obj Object
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("blob: decode response: %w", err)
	}
	return &obj, nil
}

// Delete removes the blob stored at rawURL. Deleting a missing blob succeeds.
func (c *Client) Delete(ctx context.Context, rawURL string) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if rawURL == "" {
		return nil
	}
	payload, err := json.Marshal(map[string][]string{"urls": {rawURL}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/delete", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("blob: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob: delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode/100 != 2 {
		return statusError("delete", resp)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("blob: %s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
