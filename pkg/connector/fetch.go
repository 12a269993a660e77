package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/time/rate"
)

// DefaultFetchTimeout bounds every outbound request.
const DefaultFetchTimeout = 20 * time.Second

const defaultUserAgent = "TrekAssistBot/0.1"

// hostLimiter paces requests per target host so slow courtesy on one site
// never delays another.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

func newHostLimiter(rps float64) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

func (h *hostLimiter) wait(ctx context.Context, host string) error {
	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(h.rps), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}

// Client is the shared HTTP plumbing for all connectors: one http.Client,
// one per-host pacer, one user agent.
type Client struct {
	http      *http.Client
	limiter   *hostLimiter
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides DefaultFetchTimeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUserAgent overrides the default bot user agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client pacing each host at rps requests per second.
func NewClient(rps float64, opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultFetchTimeout},
		limiter:   newHostLimiter(rps),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a URL, honoring the per-host pace. A 404 is reported as an
// error like any other non-200 status; callers decide whether that is fatal.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if err := c.limiter.wait(ctx, u.Host); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExtractReadableText pulls the main readable content out of raw HTML.
func ExtractReadableText(rawHTML string) (string, error) {
	if rawHTML == "" {
		return "", fmt.Errorf("empty HTML input")
	}
	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: true,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.ContentText), nil
}

// asciiRatio is a cheap language filter: English trekking content is
// overwhelmingly ASCII.
func asciiRatio(text string) float64 {
	if text == "" {
		return 0
	}
	ascii := 0
	for _, r := range text {
		if r < 128 {
			ascii++
		}
	}
	total := len([]rune(text))
	return float64(ascii) / float64(total)
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
