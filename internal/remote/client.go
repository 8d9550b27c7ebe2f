// Package remote is the HTTP client for the document store: the record list,
// raw file bytes, and uploads.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/pkg/retry"
)

const (
	listPath   = "/api/documents"
	uploadPath = "/api/uploads"

	defaultTimeout = 30 * time.Second
	defaultMaxBody = 32 << 20
)

// Config holds client configuration.
type Config struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	MaxBodyBytes int64
	Retry        retry.Config
}

// Client talks to the document store.
type Client struct {
	baseURL string
	token   string
	maxBody int64
	retry   retry.Config
	http    *http.Client
}

// New creates a client. Zero config fields take defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.InitialWait == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		maxBody: cfg.MaxBodyBytes,
		retry:   cfg.Retry,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// BaseURL returns the store base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// MaxBodyBytes is the largest upload or response body the client handles.
func (c *Client) MaxBodyBytes() int64 { return c.maxBody }

// FileURL returns the download URL for a store path.
func (c *Client) FileURL(path string) string {
	return document.FileURL(c.baseURL, path)
}

// List fetches the raw document records.
func (c *Client) List(ctx context.Context) ([]document.Record, error) {
	target := c.baseURL + listPath
	body, err := c.do(ctx, "list", target, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &apperr.TransportError{Op: "list", Target: target, Err: errors.New("payload is not a JSON array")}
	}
	var recs []document.Record
	if err := json.Unmarshal(trimmed, &recs); err != nil {
		return nil, &apperr.TransportError{Op: "list", Target: target, Err: fmt.Errorf("decode: %w", err)}
	}
	return recs, nil
}

// Fetch downloads the bytes at a store path such as "/files/a/b.docx".
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	target := c.FileURL(path)
	return c.do(ctx, "fetch", target, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// Upload sends r to the store as filename under dir ("" for the root).
func (c *Client) Upload(ctx context.Context, filename, dir string, r io.Reader) error {
	target := c.baseURL + uploadPath

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if dir != "" {
		if err := mw.WriteField("dir", dir); err != nil {
			return fmt.Errorf("remote: upload: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("remote: upload: %w", err)
	}
	n, err := io.Copy(fw, io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("remote: upload: read: %w", err)
	}
	if n > c.maxBody {
		return fmt.Errorf("remote: upload: %s exceeds %d bytes: %w", filename, c.maxBody, apperr.ErrTooLarge)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("remote: upload: %w", err)
	}
	payload := buf.Bytes()
	contentType := mw.FormDataContentType()

	_, err = c.do(ctx, "upload", target, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	return err
}

// do runs one request with retries and returns the capped body of a 2xx
// response. Every failure is a TransportError.
func (c *Client) do(ctx context.Context, op, target string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.ObserveRemote(op, time.Since(start)) }()

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			se := &statusError{code: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, retry.Retryable(se)
			}
			return nil, se
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
		if err != nil {
			return nil, retry.Retryable(err)
		}
		if int64(len(data)) > c.maxBody {
			return nil, fmt.Errorf("response exceeds %d bytes", c.maxBody)
		}
		return data, nil
	})
	if err != nil {
		te := &apperr.TransportError{Op: op, Target: target, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			te.Status = se.code
		}
		slog.Warn("remote: request failed", slog.String("op", op), slog.String("target", target), slog.String("error", err.Error()))
		return nil, te
	}
	return body, nil
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}
