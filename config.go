package stripe

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	// LibraryName and LibraryVersion form the User-Agent prefix.
	LibraryName    = "jp-go-stripe"
	LibraryVersion = "0.1.0"

	// DefaultAPIVersion is the Stripe-Version sent unless overridden. Bumping it
	// is a release decision.
	DefaultAPIVersion = "2024-06-20"

	// DefaultEndpoint is the production API root.
	DefaultEndpoint = "https://api.stripe.com"

	redacted = "[REDACTED]"
)

var secretPrefixes = []string{"sk_", "rk_"}

// Config holds the credentials and defaults shared by every send. It is
// immutable: the With methods return modified copies, so a Config can be
// shared freely between goroutines.
type Config struct {
	secret          string
	apiVersion      string
	appInfo         string
	clientID        string
	accountID       string
	defaultStrategy RequestStrategy
	endpoint        string
}

// NewConfig returns a Config with default version, endpoint and strategy.
// A secret that is untrimmed or lacks a known prefix is logged as a warning,
// never rejected.
func NewConfig(secret string) Config {
	checkSecret(slog.Default(), secret)
	return Config{
		secret:          secret,
		apiVersion:      DefaultAPIVersion,
		defaultStrategy: Once(),
		endpoint:        DefaultEndpoint,
	}
}

func checkSecret(logger *slog.Logger, secret string) {
	if strings.TrimSpace(secret) != secret {
		logger.Warn("stripe secret key has leading or trailing whitespace")
	}
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(secret, prefix) {
			return
		}
	}
	logger.Warn("stripe secret key does not start with a known prefix",
		"expected_prefixes", secretPrefixes)
}

// WithAPIVersion returns a copy pinned to another Stripe-Version.
func (c Config) WithAPIVersion(version string) Config {
	c.apiVersion = version
	return c
}

// WithAccount returns a copy that sends Stripe-Account on every request.
func (c Config) WithAccount(accountID string) Config {
	c.accountID = accountID
	return c
}

// WithClientID returns a copy that sends Client-Id on every request.
func (c Config) WithClientID(clientID string) Config {
	c.clientID = clientID
	return c
}

// WithAppInfo returns a copy whose User-Agent carries an application fragment.
// Empty version and url are omitted.
func (c Config) WithAppInfo(name, version, url string) Config {
	c.appInfo = FormatAppInfo(name, version, url)
	return c
}

// WithEndpoint returns a copy targeting another API root, typically a test
// server.
func (c Config) WithEndpoint(endpoint string) Config {
	c.endpoint = endpoint
	return c
}

// WithStrategy returns a copy with another default request strategy.
func (c Config) WithStrategy(strategy RequestStrategy) Config {
	c.defaultStrategy = strategy
	return c
}

// FormatAppInfo renders name[/version][ (url)].
func FormatAppInfo(name, version, url string) string {
	s := name
	if version != "" {
		s += "/" + version
	}
	if url != "" {
		s += " (" + url + ")"
	}
	return s
}

// APIVersion returns the Stripe-Version value.
func (c Config) APIVersion() string { return c.apiVersion }

// AppInfo returns the formatted application fragment, if any.
func (c Config) AppInfo() string { return c.appInfo }

// ClientID returns the Client-Id value, if any.
func (c Config) ClientID() string { return c.clientID }

// AccountID returns the default Stripe-Account value, if any.
func (c Config) AccountID() string { return c.accountID }

// Endpoint returns the API root.
func (c Config) Endpoint() string { return c.endpoint }

// DefaultStrategy returns the strategy used when neither the request nor the
// override sets one.
func (c Config) DefaultStrategy() RequestStrategy { return c.defaultStrategy }

// UserAgent returns "{library}/{version}" followed by the app fragment.
func (c Config) UserAgent() string {
	ua := LibraryName + "/" + LibraryVersion
	if c.appInfo != "" {
		ua += " " + c.appInfo
	}
	return ua
}

func (c Config) authorization() string {
	return "Bearer " + c.secret
}

// String renders the config with the secret redacted. It also backs %v and %+v.
func (c Config) String() string {
	return fmt.Sprintf("Config{secret: %s, api_version: %q, app_info: %q, client_id: %q, account_id: %q, strategy: %q, endpoint: %q}",
		redacted, c.apiVersion, c.appInfo, c.clientID, c.accountID, c.defaultStrategy, c.endpoint)
}

// GoString backs %#v with the same redacted rendering.
func (c Config) GoString() string {
	return "stripe." + c.String()
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("secret", redacted),
		slog.String("api_version", c.apiVersion),
		slog.String("app_info", c.appInfo),
		slog.String("client_id", c.clientID),
		slog.String("account_id", c.accountID),
		slog.String("strategy", c.defaultStrategy.String()),
		slog.String("endpoint", c.endpoint),
	)
}
