// Package kubo stores credential documents on an IPFS node through the Kubo
// RPC API (/api/v0/add and /api/v0/cat).
package kubo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pixelgenesis/internal/contentstore"
	"pixelgenesis/pkg/platform/retry"
)

const maxDocumentBytes = 4 << 20

// Client is a contentstore.Store backed by a Kubo node.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for the Kubo RPC endpoint at baseURL, e.g. http://127.0.0.1:5001.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy: retry.Policy{
			MaxAttempts:    2,
			AttemptTimeout: 5 * time.Second,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Put adds data as a single raw-leaf CIDv1 block and pins it.
func (c *Client) Put(ctx context.Context, data []byte) (string, error) {
	var locator string
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		body, contentType, err := multipartBody(data)
		if err != nil {
			return retry.Permanent(err)
		}
		endpoint := c.baseURL + "/api/v0/add?cid-version=1&raw-leaves=true&pin=true"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusError(resp); err != nil {
			return err
		}
		var out addResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode add response: %w", err)
		}
		if out.Hash == "" {
			return retry.Permanent(errors.New("add response carried no hash"))
		}
		locator = out.Hash
		return nil
	})
	if err != nil {
		return "", unavailable("put", err)
	}
	c.logger.DebugContext(ctx, "content stored", "locator", locator, "bytes", len(data))
	return locator, nil
}

// Get fetches the blob at locator and checks it against the CID.
func (c *Client) Get(ctx context.Context, locator string) ([]byte, error) {
	if _, err := contentstore.Parse(locator); err != nil {
		return nil, err
	}

	var data []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		endpoint := c.baseURL + "/api/v0/cat?arg=" + url.QueryEscape(locator)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusError(resp); err != nil {
			return err
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
		if err != nil {
			return err
		}
		if len(data) > maxDocumentBytes {
			return retry.Permanent(fmt.Errorf("document exceeds %d bytes", maxDocumentBytes))
		}
		return nil
	})
	switch {
	case errors.Is(err, contentstore.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, unavailable("get", err)
	}
	if err := contentstore.Verify(locator, data); err != nil {
		return nil, err
	}
	return data, nil
}

func multipartBody(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "credential.json")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type rpcError struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
}

// statusError maps non-2xx responses. Kubo answers 500 with a JSON message for
// unknown blocks; those are permanent not-found errors. Other 4xx are permanent.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var rpc rpcError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &rpc)
	msg := rpc.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if strings.Contains(msg, "not found") || resp.StatusCode == http.StatusNotFound {
		return retry.Permanent(fmt.Errorf("%w: %s", contentstore.ErrNotFound, msg))
	}
	err := fmt.Errorf("kubo returned %d: %s", resp.StatusCode, msg)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return retry.Permanent(err)
	}
	return err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, contentstore.ErrUnavailable, err)
}
