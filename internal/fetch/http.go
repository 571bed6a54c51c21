package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/octobees/exhibitor-leads/internal/document"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

type httpOptions struct {
	timeout   time.Duration
	retries   int
	waitMin   time.Duration
	waitMax   time.Duration
	userAgent string
	maxBody   int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// HTTPOption customises an HTTPFetcher.
type HTTPOption func(*httpOptions)

// WithTimeout bounds one request including retries.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries sets how often 5xx, 429 and transport errors are retried.
func WithRetries(n int, waitMin, waitMax time.Duration) HTTPOption {
	return func(o *httpOptions) {
		o.retries = n
		o.waitMin = waitMin
		o.waitMax = waitMax
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) HTTPOption {
	return func(o *httpOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the response body read into memory. The default is
// document.MaxSize.
func WithMaxBodySize(n int) HTTPOption {
	return func(o *httpOptions) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// WithRateLimit spaces requests every interval with the given burst.
func WithRateLimit(every time.Duration, burst int) HTTPOption {
	return func(o *httpOptions) {
		if every <= 0 {
			o.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithLogger routes retry diagnostics to logger.
func WithLogger(logger *zap.Logger) HTTPOption {
	return func(o *httpOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// HTTPFetcher loads documents with browser-like headers, retries and
// client-side rate limiting.
type HTTPFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher builds a fetcher over a retrying transport.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	o := httpOptions{
		timeout:   30 * time.Second,
		retries:   2,
		waitMin:   500 * time.Millisecond,
		waitMax:   5 * time.Second,
		userAgent: DefaultUserAgent,
		maxBody:   document.MaxSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = o.retries
	rc.RetryWaitMin = o.waitMin
	rc.RetryWaitMax = o.waitMax
	rc.Logger = leveledLogger{s: o.logger.Sugar()}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	hc := rc.StandardClient()
	hc.Timeout = o.timeout

	client := resty.NewWithClient(hc).SetHeaders(map[string]string{
		"User-Agent":      o.userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "de-DE,de;q=0.9,en;q=0.8",
		"Cache-Control":   "no-cache",
	}).SetResponseBodyLimit(o.maxBody)
	return &HTTPFetcher{client: client, limiter: o.limiter}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := checkURL(rawURL)
	if err != nil {
		return nil, err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for fetch slot: %w", err)
		}
	}

	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("fetch %s: %w", u, ErrTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode()}
	}
	contentType := resp.Header().Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("fetch %s: %w", u, ErrNotHTML)
	}

	final := u.String()
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	return &Page{URL: final, Body: resp.Body(), ContentType: contentType}, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
