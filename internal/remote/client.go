// Package remote is a client of the HydroData point data API, used when the
// HydroData file system is not mounted locally.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/rtm0/pointdata/internal/params"
)

var (
	// ErrStatus is returned when the API answers with a non-200 status.
	ErrStatus = errors.New("unexpected status")
	// ErrTimeout is returned when the API does not answer in time.
	ErrTimeout = errors.New("request timed out")
)

const (
	pointDataPath = "/api/point-data-app"
	metadataPath  = "/api/point-metadata-app"
	pinsPath      = "/api/api_pins"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	PINFile        string
	RequestTimeout time.Duration
	LoginTimeout   time.Duration
	MaxConns       int
}

// Client talks to the HydroData point data API.
type Client struct {
	logger         *slog.Logger
	httpCli        *http.Client
	baseURL        string
	pinFile        string
	requestTimeout time.Duration
	loginTimeout   time.Duration
	breaker        *gobreaker.CircuitBreaker
	now            func() time.Time
}

// NewClient creates a new API client.
func NewClient(logger *slog.Logger, opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", opts.BaseURL)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 180 * time.Second
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = 15 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 4
	}

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        opts.MaxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: opts.MaxConns,
				MaxConnsPerHost:     opts.MaxConns,
			},
		},
		baseURL:        strings.TrimSuffix(u.String(), "/"),
		pinFile:        opts.PINFile,
		requestTimeout: opts.RequestTimeout,
		loginTimeout:   opts.LoginTimeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "hydrodata",
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     30 * time.Second,
		}),
		now: time.Now,
	}, nil
}

// GetData sends req to the point data endpoint and decodes the JSON answer
// into out. The caller is authenticated with a fresh token first.
func (c *Client) GetData(ctx context.Context, req params.Request, out any) error {
	return c.query(ctx, pointDataPath, req, out)
}

// GetSites sends req to the metadata endpoint, which answers the matching
// sites without reading any observation.
func (c *Client) GetSites(ctx context.Context, req params.Request, out any) error {
	return c.query(ctx, metadataPath, req, out)
}

func (c *Client) query(ctx context.Context, path string, req params.Request, out any) error {
	token, err := c.Login(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path + "?" + params.Encode(req).Encode()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	status, body, err := c.get(ctx, u, header, c.requestTimeout)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: %s returned error code %d: %s", ErrStatus, u, status, errorText(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get performs one GET through the circuit breaker and returns the status
// and the whole body. Server errors count as breaker failures.
func (c *Client) get(ctx context.Context, u string, header http.Header, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqID := uuid.NewString()
	start := time.Now()

	type answer struct {
		status int
		body   []byte
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			req.Header[k] = vs
		}
		req.Header.Set("X-Request-Id", reqID)

		res, err := c.httpCli.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		a := answer{status: res.StatusCode, body: body}
		if res.StatusCode >= http.StatusInternalServerError {
			return a, fmt.Errorf("%w: %d", ErrStatus, res.StatusCode)
		}
		return a, nil
	})

	c.logger.Debug("hydrodata request", "url", redact(u), "requestId", reqID, "in", time.Since(start), "err", err)

	if a, ok := result.(answer); ok {
		return a.status, a.body, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, fmt.Errorf("%w: %s", ErrTimeout, redact(u))
		}
		return 0, nil, fmt.Errorf("get %s: %w", redact(u), err)
	}
	return 0, nil, fmt.Errorf("get %s: unexpected breaker result %T", redact(u), result)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// redact hides the PIN carried by login URLs.
func redact(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := p.Query()
	if q.Has("pin") {
		q.Set("pin", "xxxx")
		p.RawQuery = q.Encode()
	}
	return p.String()
}

// errorText extracts a short message from an error body.
func errorText(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
