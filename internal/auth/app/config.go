package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aussiebroadwan/currex/pkg/httpx"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Database drivers accepted by AUTH_DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port                int           `env:"PORT" env-default:"8080"`
	Env                 string        `env:"ENV" env-default:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat           string        `env:"LOG_FORMAT" env-default:"json"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`

	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" env-default:"sqlite"`
	DatabaseFile   string `env:"AUTH_DATABASE_FILE" env-default:"auth.db"`
	PostgresDSN    string `env:"AUTH_POSTGRES_DSN"`
	PepperFile     string `env:"AUTH_PEPPER_FILE" env-default:"pepper"`

	// Signing. The private key file holds the PEM or JWK signing key (the
	// shared secret for HS256). The public key file is optional; it is
	// derived from the private key when unset.
	Algorithm      string        `env:"AUTH_JWT_ALGORITHM" env-default:"RS256"`
	PrivateKeyPath string        `env:"AUTH_JWT_PRIVATE_KEY" env-required:"true"`
	PublicKeyPath  string        `env:"AUTH_JWT_PUBLIC_KEY"`
	Issuer         string        `env:"AUTH_ISSUER" env-default:"currex.auth"`
	Audience       []string      `env:"AUTH_AUDIENCE" env-separator:","`
	AccessTTL      time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTTL     time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" env-default:"336h"`
	NotBefore      time.Duration `env:"AUTH_JWT_NOT_BEFORE" env-default:"0s"`
	SubjectPrefix  string        `env:"AUTH_SUBJECT_PREFIX" env-default:"currex"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`

	MinUsernameLength int `env:"AUTH_MIN_USERNAME_LENGTH" env-default:"5"`
	MinPasswordLength int `env:"AUTH_MIN_PASSWORD_LENGTH" env-default:"8"`

	// Requests allowed per RATELIMIT_WINDOW for each endpoint class. Zero
	// disables that class.
	RateLimitStrict   int           `env:"RATELIMIT_STRICT_REQUESTS" env-default:"5"`
	RateLimitModerate int           `env:"RATELIMIT_MODERATE_REQUESTS" env-default:"20"`
	RateLimitLenient  int           `env:"RATELIMIT_LENIENT_REQUESTS" env-default:"100"`
	RateLimitWindow   time.Duration `env:"RATELIMIT_WINDOW" env-default:"1m"`
}

// LoadConfig reads the given .env files (".env" when none are named),
// skipping missing ones, then the process environment. Variables already
// set in the environment win over .env entries.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := jwtx.ParseAlgorithm(c.Algorithm); err != nil {
		return fmt.Errorf("AUTH_JWT_ALGORITHM: %w", err)
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("AUTH_POSTGRES_DSN is required with the postgres driver")
		}
	default:
		return fmt.Errorf("AUTH_DATABASE_DRIVER: unknown driver %q", c.DatabaseDriver)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	// nbf is stamped as iat plus the offset rounded up to whole seconds.
	nbf := c.NotBefore.Truncate(time.Second)
	if nbf < c.NotBefore {
		nbf += time.Second
	}
	if c.NotBefore < 0 || nbf+time.Second >= c.AccessTTL || nbf+time.Second >= c.RefreshTTL {
		return errors.New("AUTH_JWT_NOT_BEFORE must be within the access token lifetime")
	}
	return nil
}

// rateLimit turns a request count into a profile over the shared window.
func (c Config) rateLimit(requests int) httpx.RateLimitConfig {
	return httpx.RateLimitConfig{Requests: requests, Window: c.RateLimitWindow, Burst: requests}
}
