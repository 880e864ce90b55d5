package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pooofdevelopment/clob-trader/pkg/logger"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const (
	DefaultClobHost  = "https://clob.polymarket.com"
	DefaultGammaHost = "https://gamma-api.polymarket.com"
	DefaultWSHost    = "wss://ws-subscriptions-clob.polymarket.com"
)

// Config is the full client and harness configuration
type Config struct {
	ClobHost  string          `yaml:"clob_host"`
	GammaHost string          `yaml:"gamma_host"`
	WSHost    string          `yaml:"ws_host"`
	ChainID   int64           `yaml:"chain_id"`
	RPCURL    string          `yaml:"rpc_url"`
	Wallet    WalletConfig    `yaml:"wallet"`
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Harness   HarnessConfig   `yaml:"harness"`
	Logger    logger.Config   `yaml:"logger"`
}

// WalletConfig holds the signing key and optional preconfigured L2 credentials
type WalletConfig struct {
	PrivateKey    string `yaml:"private_key"`
	Funder        string `yaml:"funder"`
	ApiKey        string `yaml:"api_key"`
	ApiSecret     string `yaml:"api_secret"`
	ApiPassphrase string `yaml:"api_passphrase"`
}

// Creds returns preconfigured L2 credentials, or nil when none are set
func (w WalletConfig) Creds() *types.ApiCreds {
	creds := &types.ApiCreds{ApiKey: w.ApiKey, ApiSecret: w.ApiSecret, ApiPassphrase: w.ApiPassphrase}
	if !creds.Valid() {
		return nil
	}
	return creds
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig paces outgoing REST requests
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type HarnessConfig struct {
	KeepersFile  string        `yaml:"keepers_file"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	TokenID      string        `yaml:"token_id"`
	MarketSlug   string        `yaml:"market_slug"`
	TestSize     float64       `yaml:"test_size"`
	TestPrice    float64       `yaml:"test_price"`
	BookTimeout  time.Duration `yaml:"book_timeout"`
	KeeperAbove  float64       `yaml:"keeper_above"`
	SkipApproval bool          `yaml:"skip_approval"`
}

// Default returns a configuration usable against Polygon mainnet
func Default() *Config {
	return &Config{
		ClobHost:  DefaultClobHost,
		GammaHost: DefaultGammaHost,
		WSHost:    DefaultWSHost,
		ChainID:   types.PolygonChainID,
		HTTP:      HTTPConfig{Timeout: 30 * time.Second},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10},
		Harness: HarnessConfig{
			KeepersFile: ".keepers.json",
			SettleDelay: 4 * time.Second,
			TestSize:    5,
			TestPrice:   1,
			BookTimeout: 15 * time.Second,
			KeeperAbove: 97,
		},
		Logger: logger.Config{Level: "info", Encoding: "console"},
	}
}

// Load reads a YAML file on top of the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// .env is optional, real environment wins over it
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad loads the configuration or panics
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.ClobHost, "CLOB_HOST")
	setString(&c.GammaHost, "GAMMA_HOST")
	setString(&c.WSHost, "WS_HOST")
	setString(&c.RPCURL, "RPC_URL")
	setString(&c.Wallet.PrivateKey, "POLY_PRIVATE_KEY")
	setString(&c.Wallet.Funder, "POLY_FUNDER")
	setString(&c.Wallet.ApiKey, "POLY_API_KEY")
	setString(&c.Wallet.ApiSecret, "POLY_API_SECRET")
	setString(&c.Wallet.ApiPassphrase, "POLY_API_PASSPHRASE")
	setString(&c.Harness.TokenID, "TEST_TOKEN_ID")
	setString(&c.Logger.Level, "LOG_LEVEL")

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAIN_ID: %w", err)
		}
		c.ChainID = id
	}
	return nil
}

// Validate rejects configurations the client cannot run with
func (c *Config) Validate() error {
	if c.ClobHost == "" {
		return errors.New("clob_host is required")
	}
	if c.GammaHost == "" {
		return errors.New("gamma_host is required")
	}
	if !SupportedChain(c.ChainID) {
		return fmt.Errorf("unsupported chain_id %d", c.ChainID)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("rate_limit.requests_per_second must be positive")
	}
	return nil
}
