package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/auth/session"
	"github.com/labujaya/lastbite/pkg/enums"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthAPI struct {
	loginFn    func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthTokens, error)
	registerFn func(ctx context.Context, req apiclient.RegisterRequest) (string, error)
	loginCalls int
}

func (f *fakeAuthAPI) Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
	f.loginCalls++
	if f.loginFn != nil {
		return f.loginFn(ctx, req)
	}
	return &apiclient.AuthTokens{}, nil
}

func (f *fakeAuthAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (string, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, req)
	}
	return "", nil
}

func newTestService(t *testing.T, api *fakeAuthAPI) (*Service, *session.Manager) {
	t.Helper()
	creds, err := session.NewManager(session.NewMemoryStore())
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{API: api, Credentials: creds, Hub: state.NewHub()})
	require.NoError(t, err)
	return svc, creds
}

func serverError(status int, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeForStatus(status), &apiclient.APIError{StatusCode: status, Message: message}, "POST auth request failed")
}

func TestLoginSucceeds(t *testing.T) {
	api := &fakeAuthAPI{loginFn: func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		assert.Equal(t, "test", req.Username)
		assert.Equal(t, "password123", req.Password)
		return &apiclient.AuthTokens{Token: "new_token", RefreshToken: "new_refresh_token"}, nil
	}}
	svc, creds := newTestService(t, api)

	require.NoError(t, svc.Login(context.Background(), apiclient.LoginRequest{Username: "test", Password: "password123"}))

	snap := svc.Snapshot()
	assert.Equal(t, enums.RequestStatusSucceeded, snap.Request.Status)
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "new_token", snap.Token)
	assert.Equal(t, "new_refresh_token", snap.RefreshToken)

	stored, err := creds.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{AccessToken: "new_token", RefreshToken: "new_refresh_token"}, stored)
}

func TestLoginWithoutRefreshTokenDropsPreviousOne(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{loginFn: func(context.Context, apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		return &apiclient.AuthTokens{Token: "bob_access"}, nil
	}}
	svc, creds := newTestService(t, api)
	require.NoError(t, creds.Save(ctx, session.Tokens{AccessToken: "alice_access", RefreshToken: "alice_refresh"}))

	require.NoError(t, svc.Login(ctx, apiclient.LoginRequest{Username: "bob", Password: "password123"}))

	stored, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{AccessToken: "bob_access"}, stored)
	assert.Empty(t, svc.Snapshot().RefreshToken)

	restored, other := newTestService(t, &fakeAuthAPI{})
	require.NoError(t, other.Save(ctx, stored))
	ok, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginFailureKeepsServerMessage(t *testing.T) {
	api := &fakeAuthAPI{loginFn: func(context.Context, apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		return nil, serverError(401, "Username atau password salah")
	}}
	svc, _ := newTestService(t, api)

	err := svc.Login(context.Background(), apiclient.LoginRequest{Username: "test", Password: "wrong"})
	require.Error(t, err)

	snap := svc.Snapshot()
	assert.Equal(t, enums.RequestStatusFailed, snap.Request.Status)
	assert.Equal(t, "Username atau password salah", snap.Request.Error)
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
}

func TestLoginFallbackMessage(t *testing.T) {
	api := &fakeAuthAPI{loginFn: func(context.Context, apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		return nil, serverError(500, "")
	}}
	svc, _ := newTestService(t, api)

	require.Error(t, svc.Login(context.Background(), apiclient.LoginRequest{Username: "test", Password: "x"}))
	assert.Equal(t, loginFailedMessage, svc.Snapshot().Request.Error)
}

func TestLoginValidatesBeforeCalling(t *testing.T) {
	api := &fakeAuthAPI{}
	svc, _ := newTestService(t, api)

	err := svc.Login(context.Background(), apiclient.LoginRequest{Username: "test"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 0, api.loginCalls)
	assert.Equal(t, "password is required", svc.Snapshot().Request.Error)
}

func TestLogoutIsIdempotent(t *testing.T) {
	api := &fakeAuthAPI{loginFn: func(context.Context, apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		return &apiclient.AuthTokens{Token: "a", RefreshToken: "r"}, nil
	}}
	svc, creds := newTestService(t, api)
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, apiclient.LoginRequest{Username: "u", Password: "p"}))

	require.NoError(t, svc.Logout(ctx))
	first := svc.Snapshot()
	require.NoError(t, svc.Logout(ctx))
	second := svc.Snapshot()

	assert.Equal(t, first, second)
	assert.False(t, second.IsAuthenticated)
	assert.Empty(t, second.Token)
	assert.Empty(t, second.RefreshToken)
	stored, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{}, stored)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	svc, creds := newTestService(t, &fakeAuthAPI{})

	ok, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, creds.Save(ctx, session.Tokens{AccessToken: "a"}))
	ok, err = svc.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a lone access token must not restore the session")

	require.NoError(t, creds.Save(ctx, session.Tokens{AccessToken: "a", RefreshToken: "r"}))
	ok, err = svc.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	snap := svc.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "a", snap.Token)
	assert.Equal(t, enums.RequestStatusIdle, snap.Request.Status)
}

type brokenCreds struct{}

func (brokenCreds) Load(context.Context) (session.Tokens, error) {
	return session.Tokens{}, errors.New("disk unreadable")
}
func (brokenCreds) Replace(context.Context, session.Tokens) error { return errors.New("disk full") }
func (brokenCreds) Clear(context.Context) error { return errors.New("disk full") }

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{loginFn: func(context.Context, apiclient.LoginRequest) (*apiclient.AuthTokens, error) {
		return &apiclient.AuthTokens{Token: "a", RefreshToken: "r"}, nil
	}}
	svc, err := NewService(ServiceParams{API: api, Credentials: brokenCreds{}})
	require.NoError(t, err)

	ok, err := svc.Restore(ctx)
	assert.False(t, ok)
	assert.Error(t, err)

	require.Error(t, svc.Login(ctx, apiclient.LoginRequest{Username: "u", Password: "p"}))
	assert.False(t, svc.Snapshot().IsAuthenticated)
	assert.Equal(t, "failed to save session", svc.Snapshot().Request.Error)

	err = svc.Logout(ctx)
	require.Error(t, err)
	assert.False(t, svc.Snapshot().IsAuthenticated)
}

func TestRegisterAndRefreshHooks(t *testing.T) {
	api := &fakeAuthAPI{registerFn: func(ctx context.Context, req apiclient.RegisterRequest) (string, error) {
		return "Registrasi berhasil", nil
	}}
	svc, _ := newTestService(t, api)
	ctx := context.Background()

	msg, err := svc.Register(ctx, apiclient.RegisterRequest{
		Email:       "budi@example.com",
		Username:    "budi",
		PhoneNumber: "081234567890",
		FullName:    "Budi Santoso",
		Password:    "password123",
		Latitude:    -6.2,
		Longitude:   106.8,
	})
	require.NoError(t, err)
	assert.Equal(t, "Registrasi berhasil", msg)
	assert.Equal(t, enums.RequestStatusSucceeded, svc.Snapshot().Request.Status)
	assert.False(t, svc.Snapshot().IsAuthenticated)

	_, err = svc.Register(ctx, apiclient.RegisterRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.Equal(t, enums.RequestStatusFailed, svc.Snapshot().Request.Status)

	exp := time.Now().Add(time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	svc.SetTokens(ctx, session.Tokens{AccessToken: token})
	claims := svc.Claims()
	require.NotNil(t, claims)
	assert.Equal(t, "42", claims.Identity())

	svc.ForceLogout(ctx)
	assert.Nil(t, svc.Claims())
}
