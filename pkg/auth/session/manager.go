package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Persisted credential keys. The names match what earlier releases of the
// mobile app wrote so the same backing store can be shared.
const (
	KeyAccessToken  = "userToken"
	KeyRefreshToken = "refreshToken"
)

var ErrAccessTokenRequired = errors.New("access token is required")

// Store is the key-value surface credentials are persisted in. Get returns
// an empty string and a nil error when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Tokens is the persisted credential pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both tokens are present, which is the condition
// for restoring an authenticated session.
func (t Tokens) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Manager reads and writes the credential pair.
type Manager struct {
	store Store
}

// NewManager constructs a credential manager over store.
func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	return &Manager{store: store}, nil
}

// Load returns both stored tokens; missing tokens are empty.
func (m *Manager) Load(ctx context.Context) (Tokens, error) {
	access, err := m.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("reading %s: %w", KeyAccessToken, err)
	}
	refresh, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("reading %s: %w", KeyRefreshToken, err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	return m.store.Get(ctx, KeyAccessToken)
}

func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	return m.store.Get(ctx, KeyRefreshToken)
}

// Save persists the access token and, when non-empty, the refresh token.
// An empty refresh token leaves the stored one untouched.
func (m *Manager) Save(ctx context.Context, tokens Tokens) error {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return ErrAccessTokenRequired
	}
	if err := m.store.Set(ctx, KeyAccessToken, tokens.AccessToken); err != nil {
		return fmt.Errorf("writing %s: %w", KeyAccessToken, err)
	}
	if tokens.RefreshToken == "" {
		return nil
	}
	if err := m.store.Set(ctx, KeyRefreshToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("writing %s: %w", KeyRefreshToken, err)
	}
	return nil
}

// Replace persists a freshly issued pair. Unlike Save, an empty refresh
// token removes the stored one so a new login never inherits another
// session's refresh token.
func (m *Manager) Replace(ctx context.Context, tokens Tokens) error {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return ErrAccessTokenRequired
	}
	if err := m.store.Set(ctx, KeyAccessToken, tokens.AccessToken); err != nil {
		return fmt.Errorf("writing %s: %w", KeyAccessToken, err)
	}
	if tokens.RefreshToken == "" {
		if err := m.store.Remove(ctx, KeyRefreshToken); err != nil {
			return fmt.Errorf("removing %s: %w", KeyRefreshToken, err)
		}
		return nil
	}
	if err := m.store.Set(ctx, KeyRefreshToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("writing %s: %w", KeyRefreshToken, err)
	}
	return nil
}

// Clear removes both tokens. Both removals are attempted even if one fails.
func (m *Manager) Clear(ctx context.Context) error {
	return multierr.Combine(
		m.store.Remove(ctx, KeyAccessToken),
		m.store.Remove(ctx, KeyRefreshToken),
	)
}
