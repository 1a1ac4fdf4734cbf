package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labujaya/lastbite/pkg/auth/session"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refreshFixture struct {
	server        *httptest.Server
	refreshCalls  atomic.Int32
	refreshStatus int
	refreshBody   string
	refreshDelay  time.Duration
	validToken    string
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()
	f := &refreshFixture{
		refreshStatus: http.StatusOK,
		refreshBody:   `{"data":{"token":"fresh","refreshToken":"rotated-refresh"}}`,
		validToken:    "fresh",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"refreshToken"`) {
			http.Error(w, `{"message":"missing refresh token"}`, http.StatusBadRequest)
			return
		}
		time.Sleep(f.refreshDelay)
		w.WriteHeader(f.refreshStatus)
		_, _ = io.WriteString(w, f.refreshBody)
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"token expired"}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"id":42,"username":"test"}}`)
	})
	mux.HandleFunc("/api/users/me/password", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"newPassword":"secret123"`) {
			http.Error(w, `{"message":"body lost on replay"}`, http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"data":null}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *refreshFixture) root() string {
	return f.server.URL + "/api"
}

type wiredClient struct {
	client    *Client
	refresher *Refresher
	tokens    *session.Manager
	logouts   atomic.Int32
	refreshed atomic.Value
}

func wire(t *testing.T, f *refreshFixture, access, refresh string) *wiredClient {
	t.Helper()
	tokens, err := session.NewManager(session.NewMemoryStore())
	require.NoError(t, err)
	if access != "" {
		require.NoError(t, tokens.Save(context.Background(), session.Tokens{AccessToken: access, RefreshToken: refresh}))
	}
	refresher, err := NewRefresher(f.root(), tokens)
	require.NoError(t, err)
	w := &wiredClient{refresher: refresher, tokens: tokens}
	refresher.OnForcedLogout(func(context.Context) { w.logouts.Add(1) })
	refresher.OnRefreshed(func(_ context.Context, tokens session.Tokens) { w.refreshed.Store(tokens) })
	refresher.Start(context.Background())
	t.Cleanup(refresher.Stop)

	w.client, err = NewClient(f.root(), WithAuth(tokens, refresher))
	require.NoError(t, err)
	return w
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	f := newRefreshFixture(t)
	f.refreshDelay = 50 * time.Millisecond
	w := wire(t, f, "stale", "refresh-1")

	const callers = 12
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := w.client.Users().Me(context.Background())
			if err == nil && profile.Username != "test" {
				err = errors.New("unexpected profile")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), f.refreshCalls.Load(), "exactly one refresh call expected")
	stored, err := w.tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Equal(t, "rotated-refresh", stored.RefreshToken)
	hooked, ok := w.refreshed.Load().(session.Tokens)
	require.True(t, ok, "refresh hook not called")
	assert.Equal(t, "fresh", hooked.AccessToken)
	assert.Equal(t, int32(0), w.logouts.Load())
}

func TestReplayRewindsRequestBody(t *testing.T) {
	f := newRefreshFixture(t)
	w := wire(t, f, "stale", "refresh-1")

	err := w.client.Users().ChangePassword(context.Background(), ChangePasswordRequest{
		OldPassword:        "old",
		NewPassword:        "secret123",
		ConfirmNewPassword: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestRefreshKeepsRefreshTokenWhenOmitted(t *testing.T) {
	f := newRefreshFixture(t)
	f.refreshBody = `{"data":{"token":"fresh"}}`
	w := wire(t, f, "stale", "refresh-1")

	_, err := w.client.Users().Me(context.Background())
	require.NoError(t, err)
	stored, err := w.tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
	hooked := w.refreshed.Load().(session.Tokens)
	assert.Equal(t, "refresh-1", hooked.RefreshToken)
}

func TestRefreshFailureClearsSession(t *testing.T) {
	f := newRefreshFixture(t)
	f.refreshStatus = http.StatusUnauthorized
	f.refreshBody = `{"message":"refresh token revoked"}`
	w := wire(t, f, "stale", "refresh-1")

	_, err := w.client.Users().Me(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
	assert.Equal(t, "refresh token revoked", ErrorMessage(err, "Failed to fetch user data"))
	assert.Equal(t, int32(1), w.logouts.Load())

	stored, err := w.tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored.AccessToken)
	assert.Empty(t, stored.RefreshToken)
}

func TestMissingRefreshTokenForcesLogout(t *testing.T) {
	f := newRefreshFixture(t)
	w := wire(t, f, "", "")

	_, err := w.client.Users().Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Equal(t, "no refresh token", ErrorMessage(err, "Failed to fetch user data"))
	assert.Equal(t, int32(0), f.refreshCalls.Load())
	assert.Equal(t, int32(1), w.logouts.Load())
}

func TestSecond401IsNotRetried(t *testing.T) {
	f := newRefreshFixture(t)
	f.validToken = "never-valid"
	w := wire(t, f, "stale", "refresh-1")

	_, err := w.client.Users().Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestRefreshSkippedWhenTokenAlreadyRotated(t *testing.T) {
	f := newRefreshFixture(t)
	w := wire(t, f, "fresh", "refresh-1")

	token, err := w.refresher.Refresh(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(0), f.refreshCalls.Load())
}

type slowTokenStore struct {
	*session.Manager
	reading chan struct{}
	release chan struct{}
}

func (s *slowTokenStore) AccessToken(ctx context.Context) (string, error) {
	s.reading <- struct{}{}
	<-s.release
	return s.Manager.AccessToken(ctx)
}

func TestStoreReadDoesNotHoldLock(t *testing.T) {
	f := newRefreshFixture(t)
	manager, err := session.NewManager(session.NewMemoryStore())
	require.NoError(t, err)
	require.NoError(t, manager.Save(context.Background(), session.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"}))
	store := &slowTokenStore{Manager: manager, reading: make(chan struct{}), release: make(chan struct{})}
	refresher, err := NewRefresher(f.root(), store)
	require.NoError(t, err)
	refresher.Start(context.Background())
	t.Cleanup(refresher.Stop)

	result := make(chan error, 1)
	go func() {
		_, err := refresher.Refresh(context.Background(), "stale")
		result <- err
	}()
	<-store.reading

	hooked := make(chan struct{})
	go func() {
		refresher.OnForcedLogout(func(context.Context) {})
		close(hooked)
	}()
	select {
	case <-hooked:
	case <-time.After(time.Second):
		t.Fatal("hook setter blocked while the token store was read")
	}

	close(store.release)
	require.NoError(t, <-result)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestStoppedRefresherRejects(t *testing.T) {
	f := newRefreshFixture(t)
	w := wire(t, f, "stale", "refresh-1")
	w.refresher.Stop()

	_, err := w.refresher.Refresh(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrRefresherStopped)
}

func TestWaiterHonoursContext(t *testing.T) {
	f := newRefreshFixture(t)
	f.refreshDelay = 200 * time.Millisecond
	w := wire(t, f, "stale", "refresh-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.refresher.Refresh(ctx, "stale")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The detached refresh still completes for later callers.
	token, err := w.refresher.Refresh(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}
