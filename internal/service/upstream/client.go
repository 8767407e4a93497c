package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"FinCollect/internal/domain/models"
	drepo "FinCollect/internal/domain/repository"
	pkghttp "FinCollect/pkg/http"
	applogger "FinCollect/pkg/logger"
)

// Config describes the upstream quote endpoint. The request is
// GET {BaseURL}{Path}?{SymbolParam}=...&{MarketParam}=... and the body is
// passed through as an opaque JSON payload.
type Config struct {
	BaseURL          string
	Path             string
	SymbolParam      string
	MarketParam      string
	Headers          map[string]string
	Timeout          time.Duration
	RatePerSecond    float64
	Burst            int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// Client fetches one payload per call, throttled by a token bucket and
// guarded by a circuit breaker.
type Client struct {
	cfg     Config
	http    *pkghttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	l       *applogger.Logger
}

// New builds a Fetcher for cfg.
func New(cfg Config, l *applogger.Logger) (drepo.Fetcher, error) {
	return newClient(cfg, l)
}

func newClient(cfg Config, l *applogger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	if cfg.SymbolParam == "" {
		cfg.SymbolParam = "symbol"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}

	c := &Client{
		cfg:     cfg,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout), pkghttp.WithUserAgent("fincollect/upstream")),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		l:       l,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// a permanent 4xx says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return !pkghttp.IsTemporary(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.l.Warn("upstream breaker state changed",
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
	return c, nil
}

// Fetch returns the raw upstream body for symbol. Non-2xx responses and bodies
// that are not valid JSON are errors.
func (c *Client) Fetch(ctx context.Context, symbol string, market models.MarketKind) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, symbol, market)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("upstream unavailable: %w", err)
		}
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Client) get(ctx context.Context, symbol string, market models.MarketKind) (json.RawMessage, error) {
	q := map[string][]string{c.cfg.SymbolParam: {symbol}}
	if c.cfg.MarketParam != "" {
		q[c.cfg.MarketParam] = []string{string(market)}
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.Path,
		Headers:     c.cfg.Headers,
		QueryParams: q,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(body) == 0 || !json.Valid(body) {
		return nil, fmt.Errorf("fetch %s: response is not valid JSON", symbol)
	}
	return json.RawMessage(body), nil
}
