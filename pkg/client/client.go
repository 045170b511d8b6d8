// Package client is the HTTP client for the clover API. It returns the same
// *errors.Error kinds the correlation manager produces, so callers can test failures
// with errors.Is against the sentinels.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	apiPrefix = "/api/v1"
)

// Config configures the RPC client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token when set.
	Token string
	// UserID and AssetManager are sent as the X-User-ID and X-Asset-Manager headers.
	UserID          string
	AssetManager    string
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// DefaultConfig returns the client defaults for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:3000",
		Timeout:         DefaultTimeout,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client calls the correlation service over HTTP.
type Client struct {
	client  *http.Client
	baseURL string
	cfg     Config
	logger  ectologger.Logger
}

// NewClient validates cfg and builds a client with its own transport.
func NewClient(cfg Config, logger ectologger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must include a scheme and host", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    cfg.MaxIdleConns,
				IdleConnTimeout: cfg.IdleConnTimeout,
			},
			Timeout: cfg.Timeout,
		},
		baseURL: base.String(),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

type errorBody struct {
	Message string         `json:"message"`
	Kind    string         `json:"kind"`
	Meta    map[string]any `json:"meta"`
}

// do sends body as JSON and decodes a 2xx response into out. Non 2xx responses become
// *errors.Error carrying the server's kind.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if c.cfg.UserID != "" {
		req.Header.Set("X-User-ID", c.cfg.UserID)
	}
	if c.cfg.AssetManager != "" {
		req.Header.Set("X-Asset-Manager", c.cfg.AssetManager)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", method, target)
		return errors.Classify(method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > MaxResponseSize {
		return fmt.Errorf("response body too large: %d bytes (max %d)", len(data), MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", method, target, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(method+" "+path, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(method string, status int, data []byte) *errors.Error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
		if body.Message == "" {
			body.Message = http.StatusText(status)
		}
	}

	kind := errors.Kind(body.Kind)
	if kind == "" {
		kind = errors.KindForStatus(status)
	}
	e := errors.New(kind, method, "%s", body.Message)
	for k, v := range body.Meta {
		e.AddMetaValue(k, v)
	}
	return e.AddMetaValue("status_code", status)
}

func optionsQuery(opts models.RequestOptions) url.Values {
	q := url.Values{}
	if opts.EffectiveTime != nil {
		q.Set("effective_time", opts.EffectiveTime.UTC().Format(time.RFC3339))
	}
	if opts.ForLineage {
		q.Set("for_lineage", "true")
	}
	if opts.ForDuplicateProcessing {
		q.Set("for_duplicate_processing", "true")
	}
	return q
}

func pagingQuery(q url.Values, paging models.Paging) url.Values {
	if paging.StartFrom != 0 {
		q.Set("start_from", strconv.Itoa(paging.StartFrom))
	}
	if paging.PageSize != 0 {
		q.Set("page_size", strconv.Itoa(paging.PageSize))
	}
	return q
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
