package downloader

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// hostInfo stores fetch policy & limiter for one host
type hostInfo struct {
	limiter *rate.Limiter

	mu           sync.Mutex
	robotsLoaded bool
	robots       *robotstxt.RobotsData // nil if fetch failed or robots are ignored
}

func (h *hostInfo) cachedRobots() (*robotstxt.RobotsData, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.robots, h.robotsLoaded
}

func (h *hostInfo) storeRobots(robots *robotstxt.RobotsData) {
	h.mu.Lock()
	h.robots, h.robotsLoaded = robots, true
	h.mu.Unlock()
}

// HostPolicyOptions configures a HostPolicy
type HostPolicyOptions struct {
	UserAgent         string
	RequestsPerSecond float64 // <= 0 disables rate limiting
	RespectRobots     bool
	RobotsTimeout     time.Duration
	Client            *http.Client
}

// HostPolicy spaces out image downloads per host and optionally honours robots.txt.
// Image downloads fan out over many hosts, so each host gets its own token bucket.
type HostPolicy struct {
	mu     sync.Mutex
	hosts  map[string]*hostInfo
	opts   HostPolicyOptions
	robots singleflight.Group
}

// NewHostPolicy returns a ready HostPolicy
func NewHostPolicy(opts HostPolicyOptions) *HostPolicy {
	if opts.RobotsTimeout <= 0 {
		opts.RobotsTimeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HostPolicy{
		hosts: make(map[string]*hostInfo),
		opts:  opts,
	}
}

// Wait blocks until the host's token bucket allows a request to rawURL.
// It returns ErrDisallowed when robots.txt forbids the path.
func (p *HostPolicy) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid URL %q", rawURL)
	}

	h := p.host(u)

	if p.opts.RespectRobots {
		robots, err := p.robotsFor(ctx, u, h)
		if err != nil {
			return err
		}
		if robots != nil && !robots.FindGroup(p.opts.UserAgent).Test(u.EscapedPath()) {
			log.Printf("[HostPolicy] robots.txt disallows %s", rawURL)
			return ErrDisallowed
		}
	}

	if h.limiter == nil {
		return nil
	}
	return h.limiter.Wait(ctx)
}

func (p *HostPolicy) host(u *url.URL) *hostInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.hosts[u.Host]; ok {
		return h
	}

	h := &hostInfo{}
	if p.opts.RequestsPerSecond > 0 {
		burst := int(p.opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(p.opts.RequestsPerSecond), burst)
	}

	p.hosts[u.Host] = h
	return h
}

// robotsFor returns the host's robots.txt, fetching it once. Concurrent callers
// for the same host share one fetch; other hosts are never blocked by it.
// The fetch is detached from ctx: a cancelled caller stops waiting, the fetch
// still completes and is cached.
func (p *HostPolicy) robotsFor(ctx context.Context, u *url.URL, h *hostInfo) (*robotstxt.RobotsData, error) {
	if robots, ok := h.cachedRobots(); ok {
		return robots, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.robots.DoChan(u.Host, func() (interface{}, error) {
		if robots, ok := h.cachedRobots(); ok {
			return robots, nil
		}
		robots := p.fetchRobots(fetchCtx, u.Scheme, u.Host)
		h.storeRobots(robots)
		return robots, nil
	})

	select {
	case res := <-ch:
		robots, _ := res.Val.(*robotstxt.RobotsData)
		return robots, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *HostPolicy) fetchRobots(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	robotsURL := scheme + "://" + host + "/robots.txt"

	ctx, cancel := context.WithTimeout(ctx, p.opts.RobotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.opts.Client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// treat as no robots file
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
