package endpoint

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Endpoint is a single inference backend. Its URL never changes after
// construction; reachability is updated by warm-up probes.
type Endpoint struct {
	url       *url.URL
	mutex     sync.Mutex
	reachable bool
	probed    bool
	lastProbe time.Time
	latency   time.Duration
}

// New creates an Endpoint for the given base URL. It is considered
// unreachable until a probe says otherwise.
func New(u *url.URL) *Endpoint {
	return &Endpoint{url: u}
}

// Parse builds an Endpoint from a raw base URL.
func Parse(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("parse endpoint %q: missing host", raw)
	}

	return New(u), nil
}

// URL returns the endpoint base URL.
func (e *Endpoint) URL() *url.URL {
	return e.url
}

func (e *Endpoint) String() string {
	return e.url.String()
}

// Resolve joins a sub-path onto the base URL, keeping any path prefix the
// base already carries (e.g. a space mounted under /gradio).
func (e *Endpoint) Resolve(path string) string {
	u := *e.url
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// IsReachable reports the outcome of the most recent probe.
func (e *Endpoint) IsReachable() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.reachable
}

// SetReachable records a probe result.
// Returns true if the status changed, or if this is the first probe.
func (e *Endpoint) SetReachable(reachable bool, latency time.Duration) (changed bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	changed = !e.probed || e.reachable != reachable

	e.reachable = reachable
	e.probed = true
	e.lastProbe = time.Now()
	e.latency = latency

	return changed
}

// LastProbe returns when the endpoint was last probed and how long the probe
// took. The zero time means it was never probed.
func (e *Endpoint) LastProbe() (time.Time, time.Duration) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastProbe, e.latency
}

// ParseAll parses the configured endpoint list, preserving order.
func ParseAll(raw []string) ([]*Endpoint, error) {
	endpoints := make([]*Endpoint, 0, len(raw))
	for _, r := range raw {
		e, err := Parse(r)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, nil
}
