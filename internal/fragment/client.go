package fragment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/stargazerlabs/tonstars/internal/logger"
	"github.com/stargazerlabs/tonstars/internal/proxy"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// hashPattern finds the rotating api hash anywhere in an HTML body.
var hashPattern = regexp.MustCompile(`api\?hash=([a-fA-F0-9]+)`)

// Client is an authenticated session against the marketplace's private API.
// Cookies and the rotating api hash are maintained transparently: every
// response's Set-Cookie data is merged in, and any HTML body is scanned for a
// fresh hash.
type Client struct {
	BaseURL string

	mu      sync.Mutex
	cookies map[string]string
	hash    string

	pool    *proxy.Pool
	timeout time.Duration
}

// NewClient creates a session client. pool may be nil when no proxies are
// configured.
func NewClient(baseURL string, pool *proxy.Pool, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		cookies: make(map[string]string),
		pool:    pool,
		timeout: timeout,
	}
}

// Hash returns the current api hash, if one has been captured.
func (c *Client) Hash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash
}

// httpClient builds a client routed through the current healthy proxy, when
// one is available.
func (c *Client) httpClient() (*http.Client, *url.URL) {
	client := &http.Client{Timeout: c.timeout}

	if c.pool == nil || c.pool.Len() == 0 {
		return client, nil
	}

	proxyURL, ok := c.pool.Current()
	if !ok {
		return client, nil
	}

	client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	return client, proxyURL
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	c.mu.Lock()
	if len(c.cookies) > 0 {
		pairs := make([]string, 0, len(c.cookies))
		for name, value := range c.cookies {
			pairs = append(pairs, name+"="+value)
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	c.mu.Unlock()

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	client, proxyURL := c.httpClient()
	resp, err := client.Do(req)
	if err != nil {
		if c.pool != nil {
			c.pool.MarkFailed(proxyURL)
		}
		return nil, fmt.Errorf("marketplace request failed: %v", err)
	}
	defer resp.Body.Close()

	if c.pool != nil {
		c.pool.MarkSuccess(proxyURL)
	}

	c.absorbCookies(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read marketplace response: %v", err)
	}

	c.absorbHash(body)

	if resp.StatusCode >= 400 {
		return body, fmt.Errorf("marketplace returned status %d", resp.StatusCode)
	}

	return body, nil
}

// absorbCookies merges every Set-Cookie value into the session cookie set.
func (c *Client) absorbCookies(resp *http.Response) {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range cookies {
		c.cookies[ck.Name] = ck.Value
	}
}

// absorbHash re-extracts the rotating api hash from any response body that
// carries one.
func (c *Client) absorbHash(body []byte) {
	m := hashPattern.FindSubmatch(body)
	if m == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hash != string(m[1]) {
		c.hash = string(m[1])
		logger.Infof("captured rotated api hash")
	}
}

// getPage fetches an HTML page, used to seed the session.
func (c *Client) getPage(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	_, err = c.do(req)
	return err
}

// postAPI performs a form-encoded call to the /api endpoint. The method field
// selects the behavior; the session hash rides along as a query parameter
// when present.
func (c *Client) postAPI(ctx context.Context, method string, fields url.Values) ([]byte, error) {
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("method", method)

	endpoint := c.BaseURL + "/api"
	if h := c.Hash(); h != "" {
		endpoint += "?hash=" + h
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	return c.do(req)
}
