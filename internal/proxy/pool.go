package proxy

import (
	"net/url"
	"sync"

	"github.com/stargazerlabs/tonstars/internal/logger"
)

// FailureThreshold is the number of consecutive failures after which a proxy
// is taken out of rotation until it succeeds again.
const FailureThreshold = 3

type entry struct {
	url      *url.URL
	healthy  bool
	failures int
}

// Pool tracks the health of a fixed, ordered set of outbound proxies.
// Selection always returns the first healthy entry in configured order.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
}

// NewPool builds a pool from proxy URLs, skipping unparsable ones.
func NewPool(urls []string) *Pool {
	p := &Pool{}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			logger.Errorf("skipping unparsable proxy url %q", raw)
			continue
		}
		p.entries = append(p.entries, &entry{url: u, healthy: true})
	}
	return p
}

// Current returns the first healthy proxy, or false when none are configured
// or all are unhealthy.
func (p *Pool) Current() (*url.URL, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.healthy {
			return e.url, true
		}
	}
	return nil, false
}

// MarkFailed records a request failure. Three consecutive failures take the
// proxy out of rotation.
func (p *Pool) MarkFailed(u *url.URL) {
	if u == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.url.String() != u.String() {
			continue
		}
		e.failures++
		if e.failures >= FailureThreshold && e.healthy {
			e.healthy = false
			logger.Errorf("proxy %s marked unhealthy after %d failures", e.url, e.failures)
		}
		return
	}
}

// MarkSuccess resets the failure count and restores the proxy to rotation.
func (p *Pool) MarkSuccess(u *url.URL) {
	if u == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.url.String() != u.String() {
			continue
		}
		if !e.healthy {
			logger.Infof("proxy %s healthy again", e.url)
		}
		e.failures = 0
		e.healthy = true
		return
	}
}

// Len reports how many proxies are configured.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
