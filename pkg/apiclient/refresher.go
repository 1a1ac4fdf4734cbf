package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labujaya/lastbite/pkg/auth/session"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/metrics"
	"github.com/labujaya/lastbite/pkg/types"
)

const refreshPath = "/auth/refresh-token"

// CredentialStore is the persisted token pair the refresher rotates.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	Save(ctx context.Context, tokens session.Tokens) error
	Clear(ctx context.Context) error
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Refresher serializes access token refreshes: however many requests are
// rejected at once, at most one refresh call is in flight and every caller
// receives its outcome.
type Refresher struct {
	endpoint string
	http     *http.Client
	tokens   CredentialStore
	logger   *logger.Logger
	metrics  *metrics.ClientMetrics

	onRefreshed func(ctx context.Context, tokens session.Tokens)
	onLogout    func(ctx context.Context)

	mu       sync.Mutex
	inflight *refreshCall
	last     *refreshCall
	baseCtx  context.Context
	cancel   context.CancelFunc
	stopped  bool
	wg       sync.WaitGroup
}

type RefresherOption func(*Refresher)

// WithRefreshTransport overrides the round tripper of the refresh call. The
// refresh call never goes through AuthTransport.
func WithRefreshTransport(rt http.RoundTripper) RefresherOption {
	return func(r *Refresher) {
		if rt != nil {
			r.http = &http.Client{Transport: rt, Timeout: r.http.Timeout}
		}
	}
}

func WithRefreshLogger(logg *logger.Logger) RefresherOption {
	return func(r *Refresher) {
		if logg != nil {
			r.logger = logg
		}
	}
}

func WithRefreshMetrics(m *metrics.ClientMetrics) RefresherOption {
	return func(r *Refresher) {
		r.metrics = m
	}
}

// NewRefresher builds a refresher posting to {apiRoot}/auth/refresh-token.
func NewRefresher(apiRoot string, tokens CredentialStore, opts ...RefresherOption) (*Refresher, error) {
	root := strings.TrimRight(strings.TrimSpace(apiRoot), "/")
	if root == "" {
		return nil, errAPIRootRequired
	}
	if tokens == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	r := &Refresher{
		endpoint: root + refreshPath,
		http:     &http.Client{Timeout: defaultTimeout},
		tokens:   tokens,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// OnRefreshed registers a hook run after new tokens are persisted and before
// waiting requests are released.
func (r *Refresher) OnRefreshed(fn func(ctx context.Context, tokens session.Tokens)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRefreshed = fn
}

// OnForcedLogout registers a hook run when the session cannot be recovered.
func (r *Refresher) OnForcedLogout(fn func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLogout = fn
}

// Start binds refresh calls to ctx. Refreshes outlive the request that
// triggered them and end only when ctx is done or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	r.baseCtx, r.cancel = context.WithCancel(ctx)
	r.stopped = false
}

// Stop cancels an in-flight refresh and waits for it to settle.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Refresh returns a usable access token for a request that was rejected
// while carrying staleToken. If another caller already rotated the token,
// the stored one is returned without a network call. The store is read
// outside the lock.
func (r *Refresher) Refresh(ctx context.Context, staleToken string) (string, error) {
	r.mu.Lock()
	if call := r.inflight; call != nil {
		r.mu.Unlock()
		return wait(ctx, call)
	}
	if r.stopped {
		r.mu.Unlock()
		return "", ErrRefresherStopped
	}
	seen := r.last
	r.mu.Unlock()

	current, err := r.tokens.AccessToken(ctx)
	if err == nil && current != "" && current != staleToken {
		return current, nil
	}

	r.mu.Lock()
	if call := r.inflight; call != nil {
		r.mu.Unlock()
		return wait(ctx, call)
	}
	if r.stopped {
		r.mu.Unlock()
		return "", ErrRefresherStopped
	}
	// A refresh finished while the store was being read.
	if last := r.last; last != seen {
		r.mu.Unlock()
		return last.token, last.err
	}

	call := &refreshCall{done: make(chan struct{})}
	r.inflight = call
	base := r.baseCtx
	if base == nil {
		base = context.WithoutCancel(ctx)
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(base, call)
	return wait(ctx, call)
}

func wait(ctx context.Context, call *refreshCall) (string, error) {
	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Refresher) run(ctx context.Context, call *refreshCall) {
	defer r.wg.Done()

	token, err := r.refresh(ctx)

	r.mu.Lock()
	r.inflight = nil
	r.last = call
	call.token, call.err = token, err
	r.mu.Unlock()
	close(call.done)
}

func (r *Refresher) refresh(ctx context.Context) (string, error) {
	refreshToken, err := r.tokens.RefreshToken(ctx)
	if err != nil {
		r.fail(ctx, err)
		return "", sessionExpired(err)
	}
	if refreshToken == "" {
		r.metrics.IncRefresh("missing")
		r.logger.Warn(ctx, "no refresh token stored, forcing logout")
		r.forceLogout(ctx)
		return "", ErrNoRefreshToken
	}

	tokens, err := r.exchange(ctx, refreshToken)
	if err == nil {
		err = r.tokens.Save(ctx, session.Tokens{AccessToken: tokens.Token, RefreshToken: tokens.RefreshToken})
	}
	if err != nil {
		r.fail(ctx, err)
		return "", sessionExpired(err)
	}

	r.metrics.IncRefresh("success")
	r.logger.Info(ctx, "access token refreshed")
	r.mu.Lock()
	hook := r.onRefreshed
	r.mu.Unlock()
	if hook != nil {
		stored := tokens.RefreshToken
		if stored == "" {
			stored = refreshToken
		}
		hook(ctx, session.Tokens{AccessToken: tokens.Token, RefreshToken: stored})
	}
	return tokens.Token, nil
}

func (r *Refresher) exchange(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		r.metrics.ObserveRequest("auth", http.MethodPost, 0, time.Since(start))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, networkErrorMessage)
	}
	defer func() { _ = resp.Body.Close() }()
	r.metrics.ObserveRequest("auth", http.MethodPost, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, networkErrorMessage)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refresh response")
	}
	var tokens AuthTokens
	if hasData(envelope.Data) {
		if err := json.Unmarshal(envelope.Data, &tokens); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refresh response")
		}
	}
	if tokens.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh response did not include a token")
	}
	return &tokens, nil
}

// fail clears both stored tokens and forces a logout.
func (r *Refresher) fail(ctx context.Context, cause error) {
	r.metrics.IncRefresh("failure")
	r.logger.Error(ctx, "token refresh failed, clearing session", cause)
	if err := r.tokens.Clear(ctx); err != nil {
		r.logger.Error(ctx, "clearing stored tokens failed", err)
	}
	r.forceLogout(ctx)
}

func (r *Refresher) forceLogout(ctx context.Context) {
	r.mu.Lock()
	hook := r.onLogout
	r.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
}
