package stripe

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// envConfig maps STRIPE_* environment variables onto Config fields.
type envConfig struct {
	Secret     string `env:"STRIPE_SECRET_KEY,required"`
	APIVersion string `env:"STRIPE_API_VERSION,default=2024-06-20"`
	Endpoint   string `env:"STRIPE_API_BASE,default=https://api.stripe.com"`
	ClientID   string `env:"STRIPE_CLIENT_ID"`
	AccountID  string `env:"STRIPE_ACCOUNT"`
	Strategy   string `env:"STRIPE_REQUEST_STRATEGY"`
	AppName    string `env:"STRIPE_APP_NAME"`
	AppVersion string `env:"STRIPE_APP_VERSION"`
	AppURL     string `env:"STRIPE_APP_URL"`
}

// ConfigFromEnv builds a Config from STRIPE_* environment variables. Any
// dotenv files given are loaded first; variables already set in the process
// environment win over file contents.
//
// Recognised variables: STRIPE_SECRET_KEY (required), STRIPE_API_VERSION,
// STRIPE_API_BASE, STRIPE_CLIENT_ID, STRIPE_ACCOUNT, STRIPE_REQUEST_STRATEGY,
// STRIPE_APP_NAME, STRIPE_APP_VERSION and STRIPE_APP_URL.
func ConfigFromEnv(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return Config{}, misuseError("loading dotenv files: %v", err)
		}
	}

	var env envConfig
	if err := envdecode.Decode(&env); err != nil {
		return Config{}, &Error{Kind: KindClientMisuse, Message: "decoding STRIPE_* environment", Err: fmt.Errorf("envdecode: %w", err)}
	}

	cfg := NewConfig(env.Secret).
		WithAPIVersion(env.APIVersion).
		WithEndpoint(env.Endpoint).
		WithClientID(env.ClientID).
		WithAccount(env.AccountID)
	strategy, err := ParseStrategy(env.Strategy)
	if err != nil {
		return Config{}, &Error{Kind: KindClientMisuse, Message: "STRIPE_REQUEST_STRATEGY", Err: err}
	}
	if !strategy.IsZero() {
		cfg = cfg.WithStrategy(strategy)
	}
	if env.AppName != "" {
		cfg = cfg.WithAppInfo(env.AppName, env.AppVersion, env.AppURL)
	}
	return cfg, nil
}
