package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/headers"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// CreateApiKey creates a new CLOB API key
func (c *ClobClient) CreateApiKey(ctx context.Context, nonce int64) (*types.ApiCreds, error) {
	return c.l1Credentials(ctx, http.MethodPost, types.CREATE_API_KEY, nonce)
}

// DeriveApiKey derives an existing CLOB API key
func (c *ClobClient) DeriveApiKey(ctx context.Context, nonce int64) (*types.ApiCreds, error) {
	return c.l1Credentials(ctx, http.MethodGet, types.DERIVE_API_KEY, nonce)
}

func (c *ClobClient) l1Credentials(ctx context.Context, method, path string, nonce int64) (*types.ApiCreds, error) {
	w, err := c.assertLevel1Auth()
	if err != nil {
		return nil, err
	}

	h, err := headers.CreateLevel1Headers(w, nonce)
	if err != nil {
		return nil, err
	}

	body, err := c.http.Do(ctx, method, c.host+path, h, nil)
	if err != nil {
		return nil, err
	}
	return parseApiCreds(body)
}

// CreateOrDeriveApiCreds creates API creds if not already created, otherwise derives them
func (c *ClobClient) CreateOrDeriveApiCreds(ctx context.Context, nonce int64) (*types.ApiCreds, error) {
	creds, err := c.CreateApiKey(ctx, nonce)
	if err == nil {
		return creds, nil
	}
	c.logger.Debug("create api key failed, deriving", zap.Error(err))
	return c.DeriveApiKey(ctx, nonce)
}

// DeriveOrCreateApiCreds derives the existing key and only creates one when
// the wallet has none yet.
func (c *ClobClient) DeriveOrCreateApiCreds(ctx context.Context, nonce int64) (*types.ApiCreds, error) {
	creds, err := c.DeriveApiKey(ctx, nonce)
	if err == nil {
		return creds, nil
	}
	c.logger.Debug("derive api key failed, creating", zap.Error(err))
	return c.CreateApiKey(ctx, nonce)
}

// DeriveCredentials runs the L1 flow for the session store
func (c *ClobClient) DeriveCredentials(ctx context.Context, address string) (*types.ApiCreds, error) {
	if !strings.EqualFold(address, c.GetAddress()) {
		return nil, fmt.Errorf("%w: session wants %s", clobErrors.ErrSignerMismatch, address)
	}
	return c.DeriveOrCreateApiCreds(ctx, 0)
}

// SetApiCreds sets the client API credentials for the current wallet
func (c *ClobClient) SetApiCreds(creds *types.ApiCreds) {
	c.session.Set(creds)
}

// GetApiKeys lists the API keys for this address
func (c *ClobClient) GetApiKeys(ctx context.Context) ([]string, error) {
	body, err := c.authed(ctx, authRequest{Method: http.MethodGet, Path: types.GET_API_KEYS})
	if err != nil {
		return nil, err
	}
	return parseApiKeys(body)
}

// DeleteApiKey deletes the API key in use and forgets it locally
func (c *ClobClient) DeleteApiKey(ctx context.Context) error {
	if _, err := c.authed(ctx, authRequest{Method: http.MethodDelete, Path: types.DELETE_API_KEY}); err != nil {
		return err
	}
	c.session.Invalidate()
	return nil
}

// marshalBody encodes a request body once; the same bytes are signed and sent
func marshalBody(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return body, nil
}
