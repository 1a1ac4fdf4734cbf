package apiclient

import (
	"io"
	"net/http"

	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
)

const drainLimit int64 = 64 << 10

// AuthTransport attaches `Authorization: Bearer <token>` from Tokens and, on
// a 401, asks Refresher for a new token and replays the request exactly once.
// The replay goes straight to Base, so a second 401 is returned unchanged.
type AuthTransport struct {
	Base      http.RoundTripper
	Tokens    AccessTokenSource
	Refresher TokenRefresher
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token, err := t.Tokens.AccessToken(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read access token")
	}

	first := req.Clone(ctx)
	if token != "" {
		first.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.Refresher == nil {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	drain(resp)
	fresh, err := t.Refresher.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	replay := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rewind request body")
		}
		replay.Body = body
	}
	replay.Header.Set("Authorization", "Bearer "+fresh)
	return t.base().RoundTrip(replay)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
