package stripe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type strategyKind uint8

const (
	strategyUnset strategyKind = iota
	strategyOnce
	strategyIdempotent
	strategyRetry
	strategyExponentialBackoff
)

// RequestStrategy describes how many attempts a send may make, how long to
// wait between them and which idempotency key the attempts carry.
//
// The zero value means "not set" and defers to the next level of
// configuration (request builder, then Config).
type RequestStrategy struct {
	kind  strategyKind
	key   string
	limit uint32
}

// Once makes a single attempt without an idempotency key.
func Once() RequestStrategy {
	return RequestStrategy{kind: strategyOnce}
}

// Idempotent makes a single attempt carrying the given idempotency key.
func Idempotent(key string) RequestStrategy {
	return RequestStrategy{kind: strategyIdempotent, key: key}
}

// Retry makes up to n attempts back to back. All attempts of one send carry
// the same generated idempotency key.
func Retry(n uint32) RequestStrategy {
	return RequestStrategy{kind: strategyRetry, limit: n}
}

// ExponentialBackoff makes up to n attempts, waiting 2^attempt seconds before
// each retry. All attempts of one send carry the same generated idempotency key.
func ExponentialBackoff(n uint32) RequestStrategy {
	return RequestStrategy{kind: strategyExponentialBackoff, limit: n}
}

// IsZero reports whether the strategy is unset.
func (s RequestStrategy) IsZero() bool {
	return s.kind == strategyUnset
}

// Limit returns the maximum number of attempts the strategy permits.
func (s RequestStrategy) Limit() uint32 {
	switch s.kind {
	case strategyOnce, strategyIdempotent:
		return 1
	case strategyRetry, strategyExponentialBackoff:
		return s.limit
	default:
		return 0
	}
}

// IdempotencyKey returns the key to send with every attempt of one send.
// Retry and ExponentialBackoff produce a fresh random key on each call, so
// the caller must invoke it once per send.
func (s RequestStrategy) IdempotencyKey() string {
	switch s.kind {
	case strategyIdempotent:
		return s.key
	case strategyRetry, strategyExponentialBackoff:
		return uuid.NewString()
	default:
		return ""
	}
}

// RetryHint is the Service's directive about retrying, taken from the
// Stripe-Should-Retry header or the error body.
type RetryHint int8

const (
	// HintNone means the Service said nothing.
	HintNone RetryHint = iota
	// HintRetry means the Service suggests retrying.
	HintRetry
	// HintNoRetry forbids retrying regardless of strategy.
	HintNoRetry
)

// String returns the hint as it appears in logs.
func (h RetryHint) String() string {
	switch h {
	case HintRetry:
		return "true"
	case HintNoRetry:
		return "false"
	default:
		return "none"
	}
}

// HintFromBool converts a boolean directive into a RetryHint.
func HintFromBool(retry bool) RetryHint {
	if retry {
		return HintRetry
	}
	return HintNoRetry
}

// RetryOutcome is the decision returned by Evaluate.
type RetryOutcome struct {
	// Continue is true when another attempt may be made.
	Continue bool

	// Delay is how long to wait before that attempt. Zero means no wait.
	Delay time.Duration
}

// Stop terminates the send.
var Stop = RetryOutcome{}

// ContinueAfter permits another attempt after delay.
func ContinueAfter(delay time.Duration) RetryOutcome {
	return RetryOutcome{Continue: true, Delay: delay}
}

// String returns "stop", "continue" or "continue(<delay>)".
func (o RetryOutcome) String() string {
	if !o.Continue {
		return "stop"
	}
	if o.Delay == 0 {
		return "continue"
	}
	return "continue(" + o.Delay.String() + ")"
}

// Evaluate decides whether attempt number `attempt` (zero based, equal to the
// number of attempts already made) may proceed, given the status and hint
// observed on the previous attempt. A status of zero means none was observed.
//
// Rules, first match wins:
//  1. HintNoRetry stops.
//  2. Once and Idempotent continue only at attempt 0.
//  3. A 4xx status stops.
//  4. Retry(n) continues while attempt < n.
//  5. ExponentialBackoff(n) continues after 2^attempt seconds while attempt < n.
//  6. Anything else stops.
func (s RequestStrategy) Evaluate(status int, hint RetryHint, attempt uint32) RetryOutcome {
	if hint == HintNoRetry {
		return Stop
	}

	switch s.kind {
	case strategyOnce, strategyIdempotent:
		if attempt == 0 {
			return ContinueAfter(0)
		}
		return Stop
	}

	if status >= 400 && status < 500 {
		return Stop
	}

	switch s.kind {
	case strategyRetry:
		if attempt < s.limit {
			return ContinueAfter(0)
		}
	case strategyExponentialBackoff:
		if attempt < s.limit {
			return ContinueAfter(backoffDelay(attempt))
		}
	}
	return Stop
}

// backoffDelay returns 2^attempt seconds, saturating instead of overflowing.
func backoffDelay(attempt uint32) time.Duration {
	if attempt >= 33 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(uint64(1)<<attempt) * time.Second
}

// String renders the strategy in the form accepted by ParseStrategy.
func (s RequestStrategy) String() string {
	switch s.kind {
	case strategyOnce:
		return "once"
	case strategyIdempotent:
		return "idempotent(" + s.key + ")"
	case strategyRetry:
		return "retry(" + strconv.FormatUint(uint64(s.limit), 10) + ")"
	case strategyExponentialBackoff:
		return "exponential_backoff(" + strconv.FormatUint(uint64(s.limit), 10) + ")"
	default:
		return ""
	}
}

// ParseStrategy parses "once", "idempotent(<key>)", "retry(<n>)" or
// "exponential_backoff(<n>)". An empty string yields the unset strategy.
func ParseStrategy(text string) (RequestStrategy, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return RequestStrategy{}, nil
	}
	if text == "once" {
		return Once(), nil
	}

	name, arg, ok := strings.Cut(text, "(")
	if !ok || !strings.HasSuffix(arg, ")") {
		return RequestStrategy{}, fmt.Errorf("invalid request strategy %q", text)
	}
	arg = strings.TrimSuffix(arg, ")")

	switch name {
	case "idempotent":
		if arg == "" {
			return RequestStrategy{}, fmt.Errorf("invalid request strategy %q: empty idempotency key", text)
		}
		return Idempotent(arg), nil
	case "retry", "exponential_backoff":
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return RequestStrategy{}, fmt.Errorf("invalid request strategy %q: %w", text, err)
		}
		if name == "retry" {
			return Retry(uint32(n)), nil
		}
		return ExponentialBackoff(uint32(n)), nil
	default:
		return RequestStrategy{}, fmt.Errorf("invalid request strategy %q", text)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RequestStrategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s RequestStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
