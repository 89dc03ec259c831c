package stripe

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig holds client behaviour that is not part of the shared Config.
type ClientConfig struct {
	// HTTPClient performs the attempts.
	// Default: NewNetHTTPClient(nil)
	HTTPClient HTTPClient

	// Logger for send operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Limiter paces attempts on the client side. Nil disables pacing.
	Limiter *rate.Limiter

	// Observer receives one callback per attempt. Nil disables observation.
	Observer Observer

	// BackoffJitter is the upper bound of a random delay added on top of each
	// strategy delay. It never shortens the strategy's delay.
	// Default: 0
	BackoffJitter time.Duration

	// CircuitBreaker, when set, wraps HTTPClient in a circuit breaker.
	CircuitBreaker *CircuitBreakerConfig
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*ClientConfig)

// DefaultClientConfig returns client configuration with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Logger: slog.Default(),
	}
}

// WithHTTPClient sets the transport.
//
// Example:
//
//	stripe.WithHTTPClient(stripe.NewNetHTTPClient(&http.Client{Timeout: 10 * time.Second}))
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = client
	}
}

// WithLogger sets a custom logger.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	stripe.WithLogger(logger)
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithRateLimit paces attempts to at most perSecond, allowing bursts of burst.
// Every attempt, retries included, waits for a token.
//
// Example:
//
//	stripe.WithRateLimit(25, 5)
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *ClientConfig) {
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithObserver registers an attempt observer, such as a PrometheusObserver.
func WithObserver(observer Observer) ClientOption {
	return func(c *ClientConfig) {
		c.Observer = observer
	}
}

// WithBackoffJitter adds a random delay in [0, max) to each backoff.
func WithBackoffJitter(max time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.BackoffJitter = max
	}
}

// WithCircuitBreaker wraps the transport in a circuit breaker configured by opts.
//
// Example:
//
//	stripe.WithCircuitBreaker(
//	    stripe.WithMaxRequests(5),
//	    stripe.WithBreakerTimeout(60*time.Second),
//	)
func WithCircuitBreaker(opts ...CircuitBreakerOption) ClientOption {
	return func(c *ClientConfig) {
		cb := DefaultCircuitBreakerConfig()
		for _, opt := range opts {
			opt(cb)
		}
		c.CircuitBreaker = cb
	}
}

// ConfigOverride changes Config values for a single send without touching the
// shared Config. Empty fields leave the Config value in place.
type ConfigOverride struct {
	AccountID string
	Strategy  RequestStrategy
}

// RequestOption mutates the ConfigOverride of one send.
type RequestOption func(*ConfigOverride)

// ForAccount sends Stripe-Account: accountID for this request.
func ForAccount(accountID string) RequestOption {
	return func(o *ConfigOverride) {
		o.AccountID = accountID
	}
}

// UsingStrategy sets the strategy for this request, winning over the request
// builder's and the Config's.
func UsingStrategy(strategy RequestStrategy) RequestOption {
	return func(o *ConfigOverride) {
		o.Strategy = strategy
	}
}

// WithOverride applies a whole ConfigOverride.
func WithOverride(override ConfigOverride) RequestOption {
	return func(o *ConfigOverride) {
		if override.AccountID != "" {
			o.AccountID = override.AccountID
		}
		if !override.Strategy.IsZero() {
			o.Strategy = override.Strategy
		}
	}
}

func buildOverride(opts []RequestOption) ConfigOverride {
	var o ConfigOverride
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Pointer helpers for optional parameters.

// String returns a pointer to v.
func String(v string) *string { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
