// Package primeleague fetches league group and match pages and extracts
// match activity logs from them.
package primeleague

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 matchwatch"

	// Pages larger than this are not league pages
	maxPageSize = 8 << 20
)

var errPageTooLarge = errors.New("page too large")

// FetchError reports a failure to retrieve or parse a league page.
// The match stays on the watchlist and is retried next pass.
type FetchError struct {
	URL        string
	Op         string // "request", "status", "parse"
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s: status %d", e.URL, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err came from retrieving a page
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Client fetches league pages
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
	log        zerolog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a new league page client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		userAgent: defaultUserAgent,
		maxBody:   maxPageSize,
		log:       zlog.With().Str("component", "primeleague").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetchDocument GETs url and parses the body as HTML
func (c *Client) fetchDocument(ctx context.Context, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: url, Op: "status", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: url, Op: "request", Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &FetchError{URL: url, Op: "parse", Err: fmt.Errorf("%w: over %d bytes", errPageTooLarge, c.maxBody)}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: url, Op: "parse", Err: err}
	}
	return doc, nil
}
