package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/metrics"
	"github.com/askthws/harvester/internal/parse"
	"github.com/askthws/harvester/internal/stats"
)

// Config controls the crawl loop.
type Config struct {
	Seeds              []string
	AllowedDomains     []string
	UserAgent          string
	Concurrency        int
	Timeout            time.Duration
	Retries            int
	RedirectLimit      int
	Delay              time.Duration
	MaxBodySize        int
	IgnoredURLPatterns []string
	SoftErrorStrings   []string
	RespectRobots      bool
	RobotsBypassPrefix string
	ParseWorkers       int
	ParseQueueDepth    int
}

// Controller owns the collector, the frontier, and the parse pool for
// one crawl run.
type Controller struct {
	cfg       Config
	collector *colly.Collector
	frontier  *harvest.Frontier
	robots    RobotsPolicy
	parsers   map[harvest.Kind]harvest.Parser
	store     harvest.DocumentStore
	reporter  *stats.Reporter
	attempts  *attemptTracker
	pool      *parsePool
	logger    *zap.Logger
	clock     harvest.Clock

	ctx context.Context
}

// New wires a Controller from its collaborators. The collector is
// configured but no callbacks fire until Run.
func New(cfg Config, store harvest.DocumentStore, reporter *stats.Reporter, clock harvest.Clock, logger *zap.Logger) (*Controller, error) {
	if len(cfg.Seeds) == 0 {
		return nil, fmt.Errorf("at least one seed url is required")
	}
	if len(cfg.AllowedDomains) == 0 {
		return nil, fmt.Errorf("at least one allowed domain is required")
	}
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("stats reporter is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RedirectLimit <= 0 {
		cfg.RedirectLimit = 20
	}
	if cfg.MaxBodySize <= 0 {
		// Large enough for course catalogs and annual reports.
		cfg.MaxBodySize = 100 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(cfg.MaxBodySize),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure limit rule: %w", err)
	}
	redirectLimit := cfg.RedirectLimit
	collector.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= redirectLimit {
			return fmt.Errorf("stopped after %d redirects", redirectLimit)
		}
		return nil
	})

	c := &Controller{
		cfg:       cfg,
		collector: collector,
		frontier:  harvest.NewFrontier(cfg.AllowedDomains, cfg.IgnoredURLPatterns),
		robots:    NewRobotsEnforcer(cfg.RespectRobots, cfg.UserAgent, cfg.RobotsBypassPrefix, logger),
		parsers: map[harvest.Kind]harvest.Parser{
			harvest.KindHTML: parse.NewHTMLParser(cfg.SoftErrorStrings, clock),
			harvest.KindPDF:  parse.NewPDFParser(clock),
			harvest.KindICal: parse.NewICalParser(clock),
		},
		store:    store,
		reporter: reporter,
		attempts: newAttemptTracker(),
		logger:   logger,
		clock:    clock,
	}
	c.pool = newParsePool(cfg.ParseWorkers, cfg.ParseQueueDepth, c.handleParsed)
	return c, nil
}

// Run seeds the frontier and blocks until the crawl has drained or ctx
// is canceled. It is a single-use call.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.registerCallbacks()

	for _, seed := range c.cfg.Seeds {
		c.enqueue(seed)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Parse workers enqueue the links they discover, so the
		// collector and the pool have to be drained together until a
		// full cycle produces no new parse work.
		for {
			before := c.pool.Submitted()
			c.collector.Wait()
			c.pool.WaitIdle()
			c.collector.Wait()
			if c.pool.Submitted() == before {
				return
			}
		}
	}()

	select {
	case <-done:
		c.pool.Close()
		c.logger.Info("crawl drained")
		return nil
	case <-ctx.Done():
		c.logger.Warn("crawl canceled, waiting for in-flight requests")
		// Colly offers no cancellation hook. The frontier stops
		// admitting (enqueue checks ctx), so in-flight requests finish
		// and the queues run dry.
		<-done
		c.pool.Close()
		return ctx.Err()
	}
}

func (c *Controller) registerCallbacks() {
	c.collector.OnResponse(c.onResponse)
	c.collector.OnError(c.onError)
	c.collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		c.enqueue(e.Request.AbsoluteURL(e.Attr("href")))
	})
}

func (c *Controller) onResponse(r *colly.Response) {
	pageURL := r.Request.URL.String()
	domain := strings.ToLower(r.Request.URL.Hostname())

	c.reporter.Bump(stats.CounterBytes, domain, int64(len(r.Body)))
	metrics.ObserveBytes(pageURL, len(r.Body))
	c.attempts.forget(pageURL)

	kind := harvest.Classify(pageURL, r.Headers.Get("Content-Type"))
	if kind == harvest.KindUnknown {
		c.reporter.Bump(stats.CounterIgnored, domain, 1)
		metrics.ObserveDrop(pageURL, "unsupported_content_type")
		c.logger.Debug("dropped unsupported content type",
			zap.String("url", pageURL),
			zap.String("content_type", r.Headers.Get("Content-Type")))
		return
	}

	resp := harvest.FetchedResponse{
		RequestURL: pageURL,
		FinalURL:   pageURL,
		StatusCode: r.StatusCode,
		Headers:    r.Headers.Clone(),
		Body:       append([]byte(nil), r.Body...),
	}
	if err := c.pool.Submit(c.ctx, parseJob{kind: kind, resp: resp}); err != nil {
		c.logger.Warn("parse submit aborted", zap.String("url", pageURL), zap.Error(err))
	}
}

func (c *Controller) handleParsed(job parseJob) {
	pageURL := job.resp.URL()
	domain := hostOf(pageURL)

	parser := c.parsers[job.kind]
	result, err := parser.Parse(job.resp)
	if err != nil {
		c.reporter.Bump(stats.CounterErrors, domain, 1)
		metrics.ObserveError(pageURL)
		c.logger.Warn("parse failed", zap.String("url", pageURL), zap.Error(err))
		return
	}

	for _, link := range result.Links {
		c.enqueue(link)
	}

	if result.Record == nil {
		c.reporter.Bump(stats.CounterEmpty, domain, 1)
		metrics.ObserveDrop(pageURL, "empty")
		c.logger.Debug("dropped page without content", zap.String("url", pageURL))
		return
	}

	if err := c.store.Upsert(c.ctx, result.Record); err != nil {
		c.reporter.Bump(stats.CounterErrors, domain, 1)
		metrics.ObserveError(pageURL)
		c.logger.Error("store upsert failed", zap.String("url", pageURL), zap.Error(err))
		return
	}

	c.reporter.Bump(string(job.kind), domain, 1)
	metrics.ObserveDocument(pageURL, string(job.kind))
	c.logger.Info("stored document",
		zap.String("url", pageURL),
		zap.String("kind", string(job.kind)),
		zap.String("language", result.Record.Language),
		zap.String("title", result.Record.Title))
}

func (c *Controller) onError(r *colly.Response, err error) {
	if c.ctx != nil && c.ctx.Err() != nil {
		return
	}
	pageURL := r.Request.URL.String()
	domain := strings.ToLower(r.Request.URL.Hostname())

	if RetryableStatus(r.StatusCode) || RetryableError(err) {
		if c.attempts.next(pageURL) <= c.cfg.Retries {
			c.logger.Debug("retrying request",
				zap.String("url", pageURL),
				zap.Int("status", r.StatusCode),
				zap.Error(err))
			if retryErr := r.Request.Retry(); retryErr == nil {
				return
			}
		}
	}

	c.attempts.forget(pageURL)
	c.reporter.Bump(stats.CounterErrors, domain, 1)
	metrics.ObserveError(pageURL)
	c.logger.Warn("request failed",
		zap.String("url", pageURL),
		zap.Int("status", r.StatusCode),
		zap.Error(err))
}

// enqueue admits a discovered link into the frontier and schedules the
// fetch when it survives normalization, the domain filter, the ignore
// list, the dedup set, and robots.
func (c *Controller) enqueue(rawURL string) {
	if rawURL == "" {
		return
	}
	if c.ctx != nil && c.ctx.Err() != nil {
		return
	}

	normalized, decision := c.frontier.Admit(rawURL)
	switch decision {
	case harvest.Admitted:
	case harvest.RejectIgnored:
		c.reporter.Bump(stats.CounterIgnored, hostOf(rawURL), 1)
		metrics.ObserveDrop(rawURL, "ignored_pattern")
		return
	default:
		// Offsite, invalid, and already-seen links are routine and
		// stay out of the counters.
		return
	}

	if !c.robots.Allowed(c.ctx, normalized) {
		c.reporter.Bump(stats.CounterIgnored, hostOf(normalized), 1)
		metrics.ObserveDrop(normalized, "robots")
		c.logger.Debug("blocked by robots.txt", zap.String("url", normalized))
		return
	}

	if err := c.collector.Visit(normalized); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
		c.logger.Debug("visit rejected", zap.String("url", normalized), zap.Error(err))
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
