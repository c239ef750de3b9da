package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/bank-operations/internal/fixtures"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultBaseURL         = "https://www.credit-agricole.fr"
	defaultTimeoutSeconds  = 30
	defaultLogLevel        = "info"
	defaultBigQueryDataset = "finance"
	defaultEnvPath         = ".env"
)

// Environment variable names.
const (
	EnvBaseURL         = "CA_BASE_URL"
	EnvRegionalBank    = "CA_REGIONAL_BANK"
	EnvCookies         = "CA_COOKIES"
	EnvSSLVerify       = "CA_SSL_VERIFY"
	EnvHTTPTimeout     = "CA_HTTP_TIMEOUT_SECONDS"
	EnvUseMocksDir     = "USE_MOCKS_DIR"
	EnvWriteMocksDir   = "WRITE_MOCKS_DIR"
	EnvUseMockSuffix   = "USE_MOCK_SUFFIX"
	EnvWriteMockSuffix = "WRITE_MOCK_SUFFIX"
	EnvLogLevel        = "LOG_LEVEL"
	EnvBigQueryProject = "BIGQUERY_PROJECT"
	EnvBigQueryDataset = "BIGQUERY_DATASET"
)

// ErrMissingRegionalBank is returned by RequireBank when no regional bank is set.
var ErrMissingRegionalBank = errors.New("CA_REGIONAL_BANK is required")

// Config holds the runtime settings of the operations tools.
type Config struct {
	BaseURL      string
	RegionalBank string
	// Cookies is a Cookie header value copied from an authenticated browser session.
	Cookies     string
	SSLVerify   bool
	HTTPTimeout time.Duration

	Fixtures fixtures.Config

	LogLevel string

	BigQueryProject string
	BigQueryDataset string
}

// Load reads the configuration from the environment. When envPath names an
// existing file it is loaded first; variables already set are not
// overridden. An empty envPath means ".env".
func Load(envPath string) (*Config, error) {
	if envPath == "" {
		envPath = defaultEnvPath
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("Load: read %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(EnvBaseURL, defaultBaseURL)
	v.SetDefault(EnvSSLVerify, true)
	v.SetDefault(EnvHTTPTimeout, defaultTimeoutSeconds)
	v.SetDefault(EnvUseMockSuffix, fixtures.DefaultSuffix)
	v.SetDefault(EnvWriteMockSuffix, fixtures.DefaultSuffix)
	v.SetDefault(EnvLogLevel, defaultLogLevel)
	v.SetDefault(EnvBigQueryDataset, defaultBigQueryDataset)

	cfg := &Config{
		BaseURL:      v.GetString(EnvBaseURL),
		RegionalBank: v.GetString(EnvRegionalBank),
		Cookies:      v.GetString(EnvCookies),
		SSLVerify:    v.GetBool(EnvSSLVerify),
		HTTPTimeout:  time.Duration(v.GetInt(EnvHTTPTimeout)) * time.Second,
		Fixtures: fixtures.Config{
			UseMocksDir:     v.GetString(EnvUseMocksDir),
			WriteMocksDir:   v.GetString(EnvWriteMocksDir),
			UseMockSuffix:   v.GetString(EnvUseMockSuffix),
			WriteMockSuffix: v.GetString(EnvWriteMockSuffix),
		},
		LogLevel:        v.GetString(EnvLogLevel),
		BigQueryProject: v.GetString(EnvBigQueryProject),
		BigQueryDataset: v.GetString(EnvBigQueryDataset),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%s must not be empty", EnvBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvHTTPTimeout)
	}
	return nil
}

// RequireBank reports whether live requests can be made. Replay-only runs
// do not need a regional bank.
func (c *Config) RequireBank() error {
	if c.RegionalBank == "" && c.Fixtures.UseMocksDir == "" {
		return ErrMissingRegionalBank
	}
	return nil
}
