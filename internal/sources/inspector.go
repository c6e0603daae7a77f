// Package sources previews the sources attached to a claim: whether each is
// a reachable URL, its page title and how authoritative its domain is.
// Previews are display metadata and never feed the score.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/safeprotest/factcheck/internal/cache"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/worker"
)

const (
	defaultWorkers = 4
	maxRedirects   = 3
	cacheNamespace = "sources"
)

// Inspector fetches and classifies sources
type Inspector struct {
	cfg       model.SourcesConfig
	client    *http.Client
	robots    *RobotsChecker
	limiter   *worker.Limiter
	authority *AuthorityClassifier
	cache     cache.Cache
	logger    *slog.Logger
	workers   int
}

// Option configures an Inspector
type Option func(*Inspector)

// WithCache stores previews in c, keyed by source
func WithCache(c cache.Cache) Option {
	return func(i *Inspector) { i.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// WithHTTPClient replaces the default client. Redirect limits set on the
// default client do not apply to a replacement.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Inspector) { i.client = c }
}

// WithWorkers bounds how many sources are fetched at once
func WithWorkers(n int) Option {
	return func(i *Inspector) {
		if n > 0 {
			i.workers = n
		}
	}
}

// NewInspector creates an inspector from cfg
func NewInspector(cfg model.SourcesConfig, opts ...Option) *Inspector {
	i := &Inspector{
		cfg:       cfg,
		authority: NewAuthorityClassifier(cfg.PrimaryDomains, cfg.SecondaryDomains),
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:   defaultWorkers,
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.client == nil {
		i.client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: ProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	if cfg.RespectRobots {
		i.robots = NewRobotsChecker(i.client, cfg.UserAgent)
	}
	return i
}

// Inspect previews every source concurrently. The result has one entry per
// source, in input order. Failures are recorded on the entry, never returned.
func (i *Inspector) Inspect(ctx context.Context, sources []string) []model.SourceInfo {
	results := make([]model.SourceInfo, len(sources))
	if len(sources) == 0 {
		return results
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, i.workers)

	for idx, src := range sources {
		wg.Add(1)
		go func(idx int, src string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.SourceInfo{Source: src, Error: ctx.Err().Error()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			results[idx] = i.InspectOne(ctx, src)
		}(idx, src)
	}

	wg.Wait()
	return results
}

// InspectOne previews a single source. Bare domains such as "reuters.com"
// are classified but not fetched.
func (i *Inspector) InspectOne(ctx context.Context, source string) model.SourceInfo {
	info := model.SourceInfo{Source: source}

	target, isURL := ParseSource(source)
	if target == nil {
		return info
	}
	info.IsURL = isURL
	info.Host = target.Host
	info.Domain = RegistrableDomain(target.Host)
	info.Authority = i.authority.Classify(target.Host)
	if !isURL {
		return info
	}

	key := cache.Key(cacheNamespace, target.String())
	if i.cache != nil {
		if cached, ok := cache.GetJSON[model.SourceInfo](i.cache, key); ok {
			cached.Source = source
			return cached
		}
	}

	i.fetch(ctx, target, &info)

	// Context errors are transient, the next inspection should retry
	if i.cache != nil && ctx.Err() == nil {
		if err := cache.SetJSON(i.cache, key, info, i.cfg.CacheTTL); err != nil {
			i.logger.Warn("cache source preview", "source", source, "error", err)
		}
	}
	return info
}

func (i *Inspector) fetch(ctx context.Context, target *url.URL, info *model.SourceInfo) {
	rawURL := target.String()

	if i.robots != nil {
		allowed, _, err := i.robots.CanFetch(ctx, rawURL)
		if err != nil {
			info.Error = err.Error()
			return
		}
		if !allowed {
			info.Disallowed = true
			info.Error = "disallowed by robots.txt"
			return
		}
	}

	if err := i.limiter.WaitURL(ctx, rawURL); err != nil {
		info.Error = fmt.Sprintf("rate limit: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		info.Error = fmt.Sprintf("create request: %v", err)
		return
	}
	req.Header.Set("User-Agent", i.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := i.client.Do(req)
	if err != nil {
		info.Error = fmt.Sprintf("fetch: %v", err)
		i.logger.Debug("source fetch failed", "url", rawURL, "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Accessible = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !info.Accessible {
		info.Error = fmt.Sprintf("unexpected status: %d", resp.StatusCode)
		return
	}

	if !isHTML(resp.Header.Get("Content-Type")) {
		return
	}

	title, err := pageTitle(io.LimitReader(resp.Body, i.maxBodyBytes()))
	if err != nil {
		i.logger.Debug("parse source page", "url", rawURL, "error", err)
		return
	}
	info.Title = title
}

func (i *Inspector) maxBodyBytes() int64 {
	if i.cfg.MaxBodyBytes > 0 {
		return i.cfg.MaxBodyBytes
	}
	return 512_000
}

// ParseSource interprets a free-form source string. It returns the URL and
// true for an absolute http(s) URL, a synthetic https URL and false for a
// bare domain, and nil otherwise.
func ParseSource(source string) (*url.URL, bool) {
	s := strings.TrimSpace(source)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return nil, false
	}

	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if u.Host == "" {
			return nil, false
		}
		return u, true
	}

	// Bare domain, optionally with a path
	u, err := url.Parse("https://" + s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	host := stripPort(u.Host)
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return nil, false
	}
	return u, false
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// pageTitle returns the document title, falling back to og:title
func pageTitle(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	title := collapseSpace(doc.Find("head title").First().Text())
	if title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			title = collapseSpace(og)
		}
	}
	if title == "" {
		return "", errors.New("no title")
	}
	return title, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
