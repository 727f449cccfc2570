// Package adminclient is a Go client for the admin API. It keeps the
// session cookie and CSRF token of one signed-in account, mirrors fetched
// collections in Stores and sends only the changed fields of an edit.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"

	"github.com/quinisports/quinisports/internal/auth"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/shared"
)

// Config controls a Client.
type Config struct {
	BaseURL       string
	GateHeader    string
	GateOpenValue string
	Timeout       time.Duration
	RetryMax      int
	RetryWait     time.Duration
	Transport     http.RoundTripper
}

// Client talks to the admin API on behalf of one account.
type Client struct {
	baseURL   string
	gate      [2]string
	reads     *http.Client
	writes    *http.Client
	stores    *Stores
	mu        sync.RWMutex
	csrfToken string
	session   *auth.SessionView
}

// New builds a Client with an empty cookie jar and empty stores. GET
// requests are retried on transport errors and 5xx responses; mutations
// are sent once.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("adminclient: base URL required")
	}
	if cfg.GateHeader == "" {
		cfg.GateHeader = "Quini-Access"
	}
	if cfg.GateOpenValue == "" {
		cfg.GateOpenValue = "true"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("adminclient: cookie jar: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	if cfg.RetryWait > 0 {
		retryClient.RetryWaitMin = cfg.RetryWait
		retryClient.RetryWaitMax = 4 * cfg.RetryWait
	}
	retryClient.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport}
	retryClient.Logger = nil
	reads := retryClient.StandardClient()
	reads.Jar = jar

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		gate:    [2]string{cfg.GateHeader, cfg.GateOpenValue},
		reads:   reads,
		writes:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport, Jar: jar},
		stores:  NewStores(),
	}, nil
}

// Stores returns the collections of the signed-in account.
func (c *Client) Stores() *Stores {
	return c.stores
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *auth.SessionView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Login signs in with email and password and keeps the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.SessionView, error) {
	var view auth.SessionView
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &view); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.session = &view
	c.csrfToken = view.CSRFToken
	c.mu.Unlock()
	return &view, nil
}

// Logout ends the session and empties every store.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.mu.Lock()
	c.session = nil
	c.csrfToken = ""
	c.mu.Unlock()
	c.stores.Reset()
	return err
}

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps the envelope code to the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case httpx.CodeUnauthenticated:
		return shared.ErrUnauthenticated
	case httpx.CodeForbidden:
		return shared.ErrForbidden
	case httpx.CodeMaintenanceClosed:
		return shared.ErrMaintenance
	case httpx.CodeValidation:
		return shared.ErrValidation
	case httpx.CodeConflict:
		return shared.ErrConflict
	case httpx.CodeNotFound:
		return shared.ErrNotFound
	}
	return nil
}

type envelope struct {
	IsError  bool             `json:"isError"`
	Data     json.RawMessage  `json:"data"`
	Error    *httpx.ErrorBody `json:"error"`
	Warnings []shared.Warning `json:"warnings"`
}

// do sends one request and decodes the data of the envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) ([]shared.Warning, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.gate[0], c.gate[1])
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := c.reads
	if method != http.MethodGet {
		client = c.writes
		c.mu.RLock()
		if c.csrfToken != "" {
			req.Header.Set(shared.CSRFHeader, c.csrfToken)
		}
		c.mu.RUnlock()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response (%d): %w", method, path, resp.StatusCode, err)
	}
	if env.IsError || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: httpx.CodeUnknown, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code, apiErr.Message, apiErr.Fields = env.Error.Code, env.Error.Message, env.Error.Fields
		}
		return nil, apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Warnings, fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return env.Warnings, nil
}
