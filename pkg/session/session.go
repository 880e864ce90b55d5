// Package session caches L2 API credentials per wallet address and derives
// them lazily through the L1 flow.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Deriver obtains L2 credentials for address, normally by signing a ClobAuth
// attestation and calling the create or derive endpoint.
type Deriver interface {
	DeriveCredentials(ctx context.Context, address string) (*types.ApiCreds, error)
}

// DeriverFunc adapts a function to Deriver
type DeriverFunc func(ctx context.Context, address string) (*types.ApiCreds, error)

func (f DeriverFunc) DeriveCredentials(ctx context.Context, address string) (*types.ApiCreds, error) {
	return f(ctx, address)
}

// Store maps wallet addresses to credentials. Addresses compare
// case-insensitively.
type Store struct {
	mu    sync.RWMutex
	creds map[string]types.ApiCreds
}

// NewStore returns an empty credential store
func NewStore() *Store {
	return &Store{creds: make(map[string]types.ApiCreds)}
}

func storeKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Get returns a copy of the credentials cached for address
func (s *Store) Get(address string) (*types.ApiCreds, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[storeKey(address)]
	if !ok {
		return nil, false
	}
	return &c, true
}

// Put caches creds for address. Incomplete credentials are ignored.
func (s *Store) Put(address string, creds *types.ApiCreds) {
	if !creds.Valid() {
		return
	}
	s.mu.Lock()
	s.creds[storeKey(address)] = *creds
	s.mu.Unlock()
}

// Invalidate drops whatever is cached for address
func (s *Store) Invalidate(address string) {
	s.mu.Lock()
	delete(s.creds, storeKey(address))
	s.mu.Unlock()
}

// Len returns the number of cached addresses
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

// Session tracks the active wallet address and hands out its credentials.
// Concurrent first requests share a single derivation. Nothing is retried.
type Session struct {
	store   *Store
	deriver Deriver
	logger  *zap.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	address string
}

// New creates a session for address. A nil store gets a private one.
func New(store *Store, deriver Deriver, address string, logger *zap.Logger) *Session {
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: store, deriver: deriver, logger: logger, address: address}
}

// Address returns the wallet address the session is bound to
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Cached returns the credentials for the current address without deriving
func (s *Session) Cached() (*types.ApiCreds, bool) {
	return s.store.Get(s.Address())
}

// Set installs preconfigured credentials for the current address
func (s *Session) Set(creds *types.ApiCreds) {
	s.store.Put(s.Address(), creds)
}

// Credentials returns cached credentials or derives them on first use
func (s *Session) Credentials(ctx context.Context) (*types.ApiCreds, error) {
	address := s.Address()
	if address == "" {
		return nil, clobErrors.ErrL1AuthUnavailable
	}
	if creds, ok := s.store.Get(address); ok {
		return creds, nil
	}
	if s.deriver == nil {
		return nil, clobErrors.ErrL2AuthUnavailable
	}

	v, err, shared := s.group.Do(storeKey(address), func() (interface{}, error) {
		if creds, ok := s.store.Get(address); ok {
			return creds, nil
		}
		s.logger.Info("deriving api credentials", zap.String("address", address))
		creds, err := s.deriver.DeriveCredentials(ctx, address)
		if err != nil {
			return nil, err
		}
		if !creds.Valid() {
			return nil, fmt.Errorf("derive credentials: %w", clobErrors.ErrMissingResponse)
		}
		s.store.Put(address, creds)
		return creds, nil
	})
	if err != nil {
		s.logger.Warn("credential derivation failed", zap.String("address", address), zap.Error(err))
		return nil, err
	}
	if shared {
		s.logger.Debug("joined in-flight credential derivation", zap.String("address", address))
	}

	out := *v.(*types.ApiCreds)
	return &out, nil
}

// SwitchAddress moves the session to another wallet and forgets the
// credentials of the previous one.
func (s *Session) SwitchAddress(address string) {
	s.mu.Lock()
	prev := s.address
	s.address = address
	s.mu.Unlock()

	if prev == "" || storeKey(prev) == storeKey(address) {
		return
	}
	s.store.Invalidate(prev)
	s.group.Forget(storeKey(prev))
	s.logger.Info("wallet address changed", zap.String("from", prev), zap.String("to", address))
}

// Invalidate clears the current address's credentials so the next request
// derives fresh ones.
func (s *Session) Invalidate() {
	address := s.Address()
	s.store.Invalidate(address)
	s.group.Forget(storeKey(address))
	s.logger.Info("api credentials invalidated", zap.String("address", address))
}
