// Package stripe is the request execution core of a typed Stripe API client.
// Generated request types describe an endpoint through Request[T]; the Client
// adds credentials and headers, runs the attempts allowed by the request
// strategy over an HTTPClient, and decodes the JSON response into T.
//
// Example:
//
//	client := stripe.NewClient(
//	    stripe.NewConfig(os.Getenv("STRIPE_SECRET_KEY")).WithStrategy(stripe.Retry(3)),
//	    stripe.WithLogger(logger),
//	)
//
//	customer, err := stripe.Send(ctx, client, &RetrieveCustomer{ID: "cus_123"})
//	if errors.Is(err, stripe.ErrService) {
//	    // inspect err.(*stripe.Error).Service
//	}
package stripe

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Client sends requests. It holds no per-request state and is safe for
// concurrent use; sends made from different goroutines are independent.
type Client struct {
	config    Config
	transport HTTPClient
	breaker   *CircuitBreakerTransport
	logger    *slog.Logger
	limiter   *rate.Limiter
	observer  Observer
	jitter    time.Duration
	scale     func(time.Duration) time.Duration
	stats     *sendStats
}

// sendStats tracks send statistics.
type sendStats struct {
	mu              sync.RWMutex
	totalSends      int64
	totalAttempts   int64
	totalRetries    int64
	totalSuccesses  int64
	totalFailures   int64
	lastAttemptTime time.Time
	lastError       error
}

// NewClient creates a Client sharing config across all sends.
//
// Example:
//
//	client := stripe.NewClient(
//	    stripe.NewConfig(secret),
//	    stripe.WithRateLimit(25, 5),
//	    stripe.WithCircuitBreaker(),
//	)
func NewClient(config Config, opts ...ClientOption) *Client {
	cc := DefaultClientConfig()
	for _, opt := range opts {
		opt(cc)
	}

	if cc.Logger == nil {
		cc.Logger = slog.Default()
	}
	if cc.HTTPClient == nil {
		cc.HTTPClient = NewNetHTTPClient(nil)
	}

	c := &Client{
		config:    config,
		transport: cc.HTTPClient,
		logger:    cc.Logger,
		limiter:   cc.Limiter,
		observer:  cc.Observer,
		jitter:    cc.BackoffJitter,
		scale:     func(d time.Duration) time.Duration { return d },
		stats:     &sendStats{},
	}

	if cc.CircuitBreaker != nil {
		if cc.CircuitBreaker.Logger == nil {
			cc.CircuitBreaker.Logger = cc.Logger
		}
		c.breaker = newCircuitBreakerTransport(cc.HTTPClient, cc.CircuitBreaker)
		c.transport = c.breaker
	}
	return c
}

// Config returns the shared configuration.
func (c *Client) Config() Config {
	return c.config
}

// Send executes req and decodes the response into T. It blocks until the send
// finishes, ctx is cancelled, or the strategy gives up; a cancelled send
// returns ctx.Err() and makes no further attempts.
func Send[T any](ctx context.Context, c *Client, req Request[T], opts ...RequestOption) (*T, error) {
	if c == nil {
		return nil, misuseError("nil client")
	}
	if req == nil {
		return nil, misuseError("nil request")
	}
	b := req.Build()
	if b == nil {
		return nil, misuseError("request built a nil RequestBuilder")
	}

	resp, err := c.execute(ctx, b, buildOverride(opts))
	if err != nil {
		return nil, err
	}
	return decodeObject[T](resp.StatusCode, resp.Body)
}

// Result is the outcome of an asynchronous send.
type Result[T any] struct {
	Value *T
	Err   error
}

// SendAsync runs Send on its own goroutine. The returned channel receives
// exactly one Result and is then closed. Cancelling ctx abandons the send.
func SendAsync[T any](ctx context.Context, c *Client, req Request[T], opts ...RequestOption) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := Send(ctx, c, req, opts...)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// execute runs the attempt loop and returns the 2xx response.
func (c *Client) execute(ctx context.Context, b *RequestBuilder, override ConfigOverride) (*HTTPResponse, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	if c.config.endpoint == "" {
		return nil, misuseError("config has no endpoint; build it with NewConfig")
	}

	strategy := override.Strategy
	if strategy.IsZero() {
		strategy = b.Strategy
	}
	if strategy.IsZero() {
		strategy = c.config.defaultStrategy
	}
	if first := strategy.Evaluate(0, HintNone, 0); !first.Continue {
		return nil, misuseError("invalid request strategy %q: it permits no attempts", strategy.String())
	}

	accountID := override.AccountID
	if accountID == "" {
		accountID = c.config.accountID
	}

	httpReq := c.newHTTPRequest(b, accountID, strategy.IdempotencyKey())

	c.stats.mu.Lock()
	c.stats.totalSends++
	c.stats.mu.Unlock()

	var (
		attempt  uint32
		delay    time.Duration
		response *HTTPResponse
	)

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		return c.backoff(delay), false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return err
		}

		c.stats.mu.Lock()
		c.stats.totalAttempts++
		if attempt > 0 {
			c.stats.totalRetries++
		}
		c.stats.lastAttemptTime = time.Now()
		c.stats.mu.Unlock()

		started := time.Now()
		resp, err := c.transport.Execute(ctx, httpReq)
		elapsed := time.Since(started)

		// Abandon the attempt once the caller has gone away
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var (
			status  int
			hint    RetryHint
			failure *Error
		)
		switch {
		case err != nil:
			failure = transportError(err)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			response = resp
			c.observe(Attempt{Method: b.Method, Path: b.Path, Number: attempt, Status: resp.StatusCode, Duration: elapsed})
			c.logger.Debug("stripe attempt succeeded",
				"method", b.Method,
				"path", b.Path,
				"attempt", attempt,
				"status", resp.StatusCode)
			return nil
		default:
			status = resp.StatusCode
			hint = resp.ShouldRetry
			if hint == HintNone {
				hint = retryHintFromBody(resp.Body)
			}
			failure = errorFromResponse(resp.StatusCode, resp.Body)
		}

		number := attempt
		attempt++

		outcome := strategy.Evaluate(status, hint, attempt)
		if failure.Kind == KindUnknown && status > 0 && status < 400 {
			// Informational and redirect statuses are never resolved by retrying
			outcome = Stop
		}

		c.observe(Attempt{Method: b.Method, Path: b.Path, Number: number, Status: status, Duration: elapsed, Err: failure, Outcome: outcome})
		c.logger.Debug("stripe attempt failed",
			"method", b.Method,
			"path", b.Path,
			"attempt", number,
			"status", status,
			"retry_hint", hint.String(),
			"kind", failure.Kind.String(),
			"decision", outcome.String())

		if !outcome.Continue {
			return failure
		}
		delay = outcome.Delay
		return retry.RetryableError(failure)
	})
	if err != nil {
		c.logger.Warn("stripe request failed",
			"method", b.Method,
			"path", b.Path,
			"attempts", attempt,
			"error", err)
		c.stats.mu.Lock()
		c.stats.totalFailures++
		c.stats.lastError = err
		c.stats.mu.Unlock()
		return nil, err
	}

	if attempt > 0 {
		c.logger.Info("stripe request succeeded after retry",
			"method", b.Method,
			"path", b.Path,
			"attempts", attempt+1)
	}
	c.stats.mu.Lock()
	c.stats.totalSuccesses++
	c.stats.mu.Unlock()

	return response, nil
}

// newHTTPRequest materialises headers, URL and body. The result is reused
// unchanged for every attempt, so the idempotency key is stable.
func (c *Client) newHTTPRequest(b *RequestBuilder, accountID, idempotencyKey string) *HTTPRequest {
	header := http.Header{}
	header.Set("Authorization", c.config.authorization())
	header.Set("Stripe-Version", c.config.apiVersion)
	header.Set("User-Agent", c.config.UserAgent())
	if c.config.clientID != "" {
		header.Set("Client-Id", c.config.clientID)
	}
	if accountID != "" {
		header.Set("Stripe-Account", accountID)
	}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}

	url := strings.TrimRight(c.config.endpoint, "/") + b.Path
	if b.Query.Len() > 0 {
		url += "?" + b.Query.Encode()
	}

	var body []byte
	if b.Method != http.MethodGet && b.Body.Len() > 0 {
		body = []byte(b.Body.Encode())
	}
	if b.Method == http.MethodPost || len(body) > 0 {
		header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return &HTTPRequest{Method: b.Method, URL: url, Header: header, Body: body}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return transportError(err)
	}
	return nil
}

// backoff returns the strategy delay plus optional jitter. Jitter only ever
// lengthens the delay.
func (c *Client) backoff(delay time.Duration) time.Duration {
	if delay > 0 && c.jitter > 0 {
		jitterBig, err := rand.Int(rand.Reader, big.NewInt(int64(c.jitter)))
		if err == nil && delay < time.Duration(math.MaxInt64)-c.jitter {
			delay += time.Duration(jitterBig.Int64())
		}
	}
	return c.scale(delay)
}

func (c *Client) observe(a Attempt) {
	if c.observer != nil {
		c.observer.ObserveAttempt(a)
	}
}

// Stats holds statistics about sends made by a Client.
type Stats struct {
	// TotalSends is the number of sends that reached the attempt loop.
	TotalSends int64

	// TotalAttempts is the total number of attempts made (including retries).
	TotalAttempts int64

	// TotalRetries is the number of attempts after the first of a send.
	TotalRetries int64

	// TotalSuccesses is the number of sends that returned a 2xx response.
	TotalSuccesses int64

	// TotalFailures is the number of sends that ended in an error.
	TotalFailures int64

	// LastAttemptTime is the time of the last attempt.
	LastAttemptTime time.Time

	// LastError is the last error a send ended with (if any).
	LastError error
}

// Stats returns a snapshot of the client's send statistics.
func (c *Client) Stats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		TotalSends:      c.stats.totalSends,
		TotalAttempts:   c.stats.totalAttempts,
		TotalRetries:    c.stats.totalRetries,
		TotalSuccesses:  c.stats.totalSuccesses,
		TotalFailures:   c.stats.totalFailures,
		LastAttemptTime: c.stats.lastAttemptTime,
		LastError:       c.stats.lastError,
	}
}

// Health reports the circuit breaker's state, or a healthy "disabled" status
// when the client has no breaker.
func (c *Client) Health() HealthStatus {
	if c.breaker == nil {
		return HealthStatus{Healthy: true, Status: "disabled"}
	}
	return c.breaker.Health()
}
