package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pooofdevelopment/clob-trader/pkg/config"
	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/headers"
	"github.com/pooofdevelopment/clob-trader/pkg/httpclient"
	"github.com/pooofdevelopment/clob-trader/pkg/orderbuilder"
	"github.com/pooofdevelopment/clob-trader/pkg/session"
	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// ClobClient is the main client for interacting with the CLOB API
type ClobClient struct {
	host    string
	wsHost  string
	chainID int64
	http    *httpclient.Client
	logger  *zap.Logger
	session *session.Session

	walletMu sync.RWMutex
	wallet   signer.Wallet
	builder  *orderbuilder.OrderBuilder

	// Local cache
	cacheMu   sync.RWMutex
	tickSizes map[string]float64
	negRisk   map[string]bool
	minSizes  map[string]float64
}

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	creds      *types.ApiCreds
	store      *session.Store
	wsHost     string
}

// Option configures a ClobClient
type Option func(*options)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger; nil keeps the no-op default
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRateLimit paces REST calls to rps with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithCredentials installs known L2 credentials for the wallet, skipping
// derivation until they are rejected.
func WithCredentials(creds *types.ApiCreds) Option {
	return func(o *options) { o.creds = creds }
}

// WithSessionStore shares a credential store between clients
func WithSessionStore(s *session.Store) Option {
	return func(o *options) { o.store = s }
}

// WithWSHost overrides the websocket host used by NewMarketPool
func WithWSHost(host string) Option {
	return func(o *options) { o.wsHost = host }
}

// NewClobClient creates a new CLOB client. w may be nil for a read-only
// (level 0) client.
func NewClobClient(host string, chainID int64, w signer.Wallet, opts ...Option) (*ClobClient, error) {
	if !config.SupportedChain(chainID) {
		return nil, fmt.Errorf("%w: %d", clobErrors.ErrInvalidChainID, chainID)
	}
	if w != nil && w.ChainID() != chainID {
		return nil, fmt.Errorf("%w: wallet on %d, client on %d", clobErrors.ErrInvalidChainID, w.ChainID(), chainID)
	}

	o := &options{wsHost: config.DefaultWSHost}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	httpOpts := []httpclient.Option{httpclient.WithLogger(o.logger.Named("http"))}
	if o.httpClient != nil {
		httpOpts = append(httpOpts, httpclient.WithHTTPClient(o.httpClient))
	}
	if o.limiter != nil {
		httpOpts = append(httpOpts, httpclient.WithRateLimiter(o.limiter))
	}

	c := &ClobClient{
		host:      strings.TrimRight(host, "/"),
		wsHost:    o.wsHost,
		chainID:   chainID,
		http:      httpclient.NewClient(httpOpts...),
		logger:    o.logger,
		wallet:    w,
		tickSizes: make(map[string]float64),
		negRisk:   make(map[string]bool),
		minSizes:  make(map[string]float64),
	}
	if w != nil {
		c.builder = orderbuilder.NewOrderBuilder(w)
	}

	c.session = session.New(o.store, c, c.GetAddress(), o.logger.Named("session"))
	if o.creds != nil {
		c.session.Set(o.creds)
	}

	return c, nil
}

// NewFromConfig builds a client from loaded configuration
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*ClobClient, error) {
	var w signer.Wallet
	if cfg.Wallet.PrivateKey != "" {
		s, err := signer.NewSigner(cfg.Wallet.PrivateKey, cfg.ChainID)
		if err != nil {
			return nil, fmt.Errorf("failed to create signer: %w", err)
		}
		w = s
	}

	opts := []Option{
		WithLogger(logger),
		WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
		WithWSHost(cfg.WSHost),
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	if creds := cfg.Wallet.Creds(); creds != nil {
		opts = append(opts, WithCredentials(creds))
	}

	return NewClobClient(cfg.ClobHost, cfg.ChainID, w, opts...)
}

// GetAddress returns the public address of the signer
func (c *ClobClient) GetAddress() string {
	c.walletMu.RLock()
	defer c.walletMu.RUnlock()
	if c.wallet == nil {
		return ""
	}
	return c.wallet.Address()
}

func (c *ClobClient) ChainID() int64 {
	return c.chainID
}

func (c *ClobClient) Host() string {
	return c.host
}

// Session returns the credential session of the current wallet
func (c *ClobClient) Session() *session.Session {
	return c.session
}

// Mode reports the authentication level currently available
func (c *ClobClient) Mode() int {
	if c.currentWallet() == nil {
		return types.L0
	}
	if _, ok := c.session.Cached(); ok {
		return types.L2
	}
	return types.L1
}

// SetSigner switches the wallet. Credentials cached for the previous
// address are dropped.
func (c *ClobClient) SetSigner(w signer.Wallet) error {
	if w != nil && w.ChainID() != c.chainID {
		return fmt.Errorf("%w: wallet on %d, client on %d", clobErrors.ErrInvalidChainID, w.ChainID(), c.chainID)
	}

	c.walletMu.Lock()
	c.wallet = w
	c.builder = nil
	if w != nil {
		c.builder = orderbuilder.NewOrderBuilder(w)
	}
	c.walletMu.Unlock()

	c.session.SwitchAddress(c.GetAddress())
	return nil
}

func (c *ClobClient) currentWallet() signer.Wallet {
	c.walletMu.RLock()
	defer c.walletMu.RUnlock()
	return c.wallet
}

func (c *ClobClient) orderBuilder() *orderbuilder.OrderBuilder {
	c.walletMu.RLock()
	defer c.walletMu.RUnlock()
	return c.builder
}

// GetCollateralAddress returns the collateral token address
func (c *ClobClient) GetCollateralAddress() (string, error) {
	contractConfig, err := config.GetContractConfig(c.chainID, false)
	if err != nil {
		return "", err
	}
	return contractConfig.Collateral, nil
}

// GetConditionalAddress returns the conditional token address
func (c *ClobClient) GetConditionalAddress() (string, error) {
	contractConfig, err := config.GetContractConfig(c.chainID, false)
	if err != nil {
		return "", err
	}
	return contractConfig.ConditionalTokens, nil
}

// GetExchangeAddress returns the exchange address
func (c *ClobClient) GetExchangeAddress(negRisk bool) (string, error) {
	contractConfig, err := config.GetContractConfig(c.chainID, negRisk)
	if err != nil {
		return "", err
	}
	return contractConfig.Exchange, nil
}

// GetOk performs a health check
func (c *ClobClient) GetOk(ctx context.Context) (string, error) {
	body, err := c.http.Get(ctx, c.host+"/", nil)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
}

// GetServerTime returns the exchange clock
func (c *ClobClient) GetServerTime(ctx context.Context) (time.Time, error) {
	body, err := c.http.Get(ctx, c.host+types.TIME, nil)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(string(body)), `"`), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time %q: %w", body, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// assertLevel1Auth checks for Level 1 authentication
func (c *ClobClient) assertLevel1Auth() (signer.Wallet, error) {
	w := c.currentWallet()
	if w == nil {
		return nil, clobErrors.ErrL1AuthUnavailable
	}
	return w, nil
}

// credentials returns L2 credentials, deriving them on first use
func (c *ClobClient) credentials(ctx context.Context) (*types.ApiCreds, error) {
	if _, err := c.assertLevel1Auth(); err != nil {
		return nil, clobErrors.ErrL2AuthUnavailable
	}
	return c.session.Credentials(ctx)
}

// authRequest is one L2-signed call. Path is what gets signed; Query is
// appended to the request URL only.
type authRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// doL2 signs and sends req. A 401 blaming the API key clears the cached
// credentials so the next call derives new ones.
func (c *ClobClient) doL2(ctx context.Context, creds *types.ApiCreds, req authRequest) ([]byte, error) {
	address := c.GetAddress()
	h, err := headers.CreateLevel2Headers(address, creds, &types.RequestArgs{
		Method:      req.Method,
		RequestPath: req.Path,
		Body:        string(req.Body),
	})
	if err != nil {
		return nil, err
	}

	body, err := c.http.Do(ctx, req.Method, httpclient.BuildURL(c.host, req.Path, req.Query), h, req.Body)
	if err != nil {
		if clobErrors.IsInvalidApiKey(err) {
			c.logger.Warn("api key rejected, clearing credentials",
				zap.String("address", address),
				zap.String("path", req.Path))
			c.session.Invalidate()
		}
		return nil, err
	}
	return body, nil
}

// authed fetches credentials and runs one L2 request
func (c *ClobClient) authed(ctx context.Context, req authRequest) ([]byte, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	return c.doL2(ctx, creds, req)
}
