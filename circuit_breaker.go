package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and state change callbacks.
	// Default: "stripe-api"
	Name string

	// ReadyToTrip is called with a copy of counts whenever a request fails in the closed state.
	// If ReadyToTrip returns true, the circuit breaker will be placed into the open state.
	// Default: trips after 3 requests with 60% failure rate
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// Classifier determines which failures count against the breaker.
	// Default: HTTPStatusClassifier (transport errors and 5xx)
	Classifier CircuitBreakerErrorClassifier

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Interval is the cyclic period of the closed state for the circuit breaker
	// to clear the internal counts. If 0, never clears.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the state becomes half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is in the half-open state.
	// Default: 3
	MaxRequests uint32
}

// CircuitBreakerOption is a functional option for configuring circuit breaker behavior.
type CircuitBreakerOption func(*CircuitBreakerConfig)

// CircuitBreakerCounts holds the internal counts of the circuit breaker.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit is closed and requests flow normally.
	StateClosed CircuitBreakerState = iota

	// StateHalfOpen means the circuit is testing if the Service has recovered.
	StateHalfOpen

	// StateOpen means the circuit is open and requests are rejected immediately.
	StateOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// DefaultCircuitBreakerConfig returns circuit breaker configuration with sensible defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        "stripe-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		Classifier: NewHTTPStatusClassifier(),
		Logger:     slog.Default(),
	}
}

// WithMaxRequests sets the maximum number of requests in half-open state.
func WithMaxRequests(maxRequests uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MaxRequests = maxRequests
	}
}

// WithInterval sets the interval for clearing counts in closed state.
func WithInterval(interval time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Interval = interval
	}
}

// WithBreakerTimeout sets how long the breaker stays open.
func WithBreakerTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Timeout = timeout
	}
}

// WithReadyToTrip sets a custom function to determine when to trip the circuit.
//
// Example:
//
//	stripe.WithReadyToTrip(func(counts stripe.CircuitBreakerCounts) bool {
//	    return counts.ConsecutiveFailures >= 5
//	})
func WithReadyToTrip(fn func(counts CircuitBreakerCounts) bool) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ReadyToTrip = fn
	}
}

// WithBreakerClassifier sets a custom classifier for circuit breaker decisions.
func WithBreakerClassifier(classifier CircuitBreakerErrorClassifier) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Classifier = classifier
	}
}

// WithStateChangeHandler sets a callback for circuit breaker state changes.
func WithStateChangeHandler(fn func(name string, from, to CircuitBreakerState)) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.OnStateChange = fn
	}
}

// WithBreakerLogger sets a custom logger for circuit breaker operations.
func WithBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Logger = logger
	}
}

// CircuitBreakerErrorClassifier determines whether a failed attempt should
// count against the circuit breaker.
type CircuitBreakerErrorClassifier interface {
	ShouldTripCircuit(err error) bool
}

// HTTPStatusClassifier trips the breaker on transport failures and on the
// configured response statuses.
type HTTPStatusClassifier struct {
	// CircuitTripStatuses lists HTTP status codes that should trip the circuit breaker.
	// Defaults to 500, 502, 503, 504 if nil.
	CircuitTripStatuses []int
}

// NewHTTPStatusClassifier creates a classifier with default status mappings.
func NewHTTPStatusClassifier() *HTTPStatusClassifier {
	return &HTTPStatusClassifier{
		CircuitTripStatuses: []int{500, 502, 503, 504},
	}
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier.
func (c *HTTPStatusClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	// Rate limits, timeouts and caller cancellation are transient
	if errors.Is(err, jperrors.ErrRateLimited) {
		return false
	}
	if jperrors.IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		// Transport failure
		return true
	}
	return containsStatus(c.getCircuitTripStatuses(), statusCode)
}

func (c *HTTPStatusClassifier) getCircuitTripStatuses() []int {
	if c.CircuitTripStatuses != nil {
		return c.CircuitTripStatuses
	}
	return []int{500, 502, 503, 504}
}

func extractStatusCode(err error) int {
	type httpStatusProvider interface {
		StatusCode() int
	}
	var statusProvider httpStatusProvider
	if errors.As(err, &statusProvider) {
		return statusProvider.StatusCode()
	}
	return 0
}

func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// statusFailure reports a non-2xx response to the breaker. It never escapes
// the breaker transport.
type statusFailure struct {
	code int
}

func (e *statusFailure) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusFailure) StatusCode() int { return e.code }

// CircuitBreakerTransport wraps an HTTPClient with a circuit breaker. While
// open it rejects attempts with a jperrors circuit breaker error, which the
// Client reports as a Transport error subject to the request strategy.
type CircuitBreakerTransport struct {
	next       HTTPClient
	cb         *gobreaker.CircuitBreaker[*HTTPResponse]
	logger     *slog.Logger
	classifier CircuitBreakerErrorClassifier
}

// NewCircuitBreakerTransport wraps next with a circuit breaker configured by opts.
func NewCircuitBreakerTransport(next HTTPClient, opts ...CircuitBreakerOption) *CircuitBreakerTransport {
	config := DefaultCircuitBreakerConfig()
	for _, opt := range opts {
		opt(config)
	}
	return newCircuitBreakerTransport(next, config)
}

func newCircuitBreakerTransport(next HTTPClient, config *CircuitBreakerConfig) *CircuitBreakerTransport {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Classifier == nil {
		config.Classifier = NewHTTPStatusClassifier()
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = DefaultCircuitBreakerConfig().ReadyToTrip
	}

	classifier := config.Classifier

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return config.ReadyToTrip(convertCounts(counts))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			config.Logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			if config.OnStateChange != nil {
				config.OnStateChange(name, convertGobreakerState(from), convertGobreakerState(to))
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier.ShouldTripCircuit(err)
		},
	}

	return &CircuitBreakerTransport{
		next:       next,
		cb:         gobreaker.NewCircuitBreaker[*HTTPResponse](settings),
		logger:     config.Logger,
		classifier: classifier,
	}
}

// Execute implements HTTPClient.
func (t *CircuitBreakerTransport) Execute(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	var failed *HTTPResponse

	resp, err := t.cb.Execute(func() (*HTTPResponse, error) {
		resp, err := t.next.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			failed = resp
			return resp, &statusFailure{code: resp.StatusCode}
		}
		return resp, nil
	})

	var sf *statusFailure
	if errors.As(err, &sf) && failed != nil {
		return failed, nil
	}
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			counts := t.cb.Counts()
			t.logger.Warn("circuit breaker is open, request rejected",
				"error", err,
				"state", t.cb.State().String(),
				"counts", counts)
			return nil, jperrors.NewCircuitBreakerError(
				"request rejected",
				"execute",
				"open",
				jperrors.WithCause(err),
				jperrors.WithCounts(jperrorsCounts(counts)),
			)
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			counts := t.cb.Counts()
			t.logger.Debug("circuit breaker in half-open state, too many requests",
				"error", err)
			return nil, jperrors.NewCircuitBreakerError(
				"too many requests in half-open state",
				"execute",
				"half-open",
				jperrors.WithCause(err),
				jperrors.WithCounts(jperrorsCounts(counts)),
			)
		default:
			t.logger.Debug("request failed through circuit breaker",
				"error", err,
				"should_trip", t.classifier.ShouldTripCircuit(err))
		}
		return nil, err
	}
	return resp, nil
}

// State returns the current state of the circuit breaker.
func (t *CircuitBreakerTransport) State() CircuitBreakerState {
	return convertGobreakerState(t.cb.State())
}

// Counts returns the current counts of the circuit breaker.
func (t *CircuitBreakerTransport) Counts() CircuitBreakerCounts {
	return convertCounts(t.cb.Counts())
}

// Health returns the health status of the circuit breaker.
func (t *CircuitBreakerTransport) Health() HealthStatus {
	state := t.State()
	counts := t.Counts()

	var healthy bool
	switch state {
	case StateClosed, StateHalfOpen:
		healthy = true // half-open is degraded but operational
	case StateOpen:
		healthy = false
	}

	return HealthStatus{
		Healthy:              healthy,
		Status:               state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

func convertCounts(counts gobreaker.Counts) CircuitBreakerCounts {
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func jperrorsCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func convertGobreakerState(state gobreaker.State) CircuitBreakerState {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
