// Package auth holds the client session: the token pair, whether the user
// is authenticated, and the lifecycle of login and registration.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	pkgauth "github.com/labujaya/lastbite/pkg/auth"
	"github.com/labujaya/lastbite/pkg/auth/session"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/validate"
)

const (
	storeName                 = "auth"
	loginFailedMessage        = "Login failed"
	registrationFailedMessage = "Registration failed"
)

type authAPI interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthTokens, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (string, error)
}

type credentialStore interface {
	Load(ctx context.Context) (session.Tokens, error)
	Replace(ctx context.Context, tokens session.Tokens) error
	Clear(ctx context.Context) error
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Token           string      `json:"token,omitempty"`
	RefreshToken    string      `json:"refreshToken,omitempty"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	Request         state.Track `json:"request"`
}

// ServiceParams bundles the dependencies required to build the auth store.
type ServiceParams struct {
	API         authAPI
	Credentials credentialStore
	Hub         *state.Hub
	Logger      *logger.Logger
}

type Service struct {
	api    authAPI
	creds  credentialStore
	hub    *state.Hub
	logger *logger.Logger

	mu    sync.RWMutex
	state Snapshot
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("auth api is required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		api:    params.API,
		creds:  params.Credentials,
		hub:    params.Hub,
		logger: logg,
		state:  Snapshot{Request: state.Idle()},
	}, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) update(op string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: op})
}

// Restore reads the persisted token pair. The session becomes authenticated
// only when both tokens are present; anything else resets it.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	tokens, err := s.creds.Load(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to load stored credentials", err)
		s.setAuthState(session.Tokens{}, false)
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stored credentials")
	}
	if !tokens.Complete() {
		s.setAuthState(session.Tokens{}, false)
		return false, nil
	}
	s.setAuthState(tokens, true)
	return true, nil
}

func (s *Service) setAuthState(tokens session.Tokens, authenticated bool) {
	s.update("restore", func(st *Snapshot) {
		st.IsAuthenticated = authenticated
		st.Token = tokens.AccessToken
		st.RefreshToken = tokens.RefreshToken
		st.Request = state.Idle()
	})
}

// Login exchanges credentials for a token pair, persists it and marks the
// session authenticated. On failure the session is cleared and the error
// message is kept in the request track.
func (s *Service) Login(ctx context.Context, req apiclient.LoginRequest) error {
	s.update("login", func(st *Snapshot) { st.Request.Begin() })

	err := validate.Struct(req)
	var tokens *apiclient.AuthTokens
	if err == nil {
		tokens, err = s.api.Login(ctx, req)
	}
	if err == nil && tokens.Token == "" {
		err = pkgerrors.New(pkgerrors.CodeDependency, "login response did not include a token")
	}
	if err == nil {
		if saveErr := s.creds.Replace(ctx, session.Tokens{AccessToken: tokens.Token, RefreshToken: tokens.RefreshToken}); saveErr != nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, saveErr, "failed to save session")
		}
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, loginFailedMessage)
		s.update("login", func(st *Snapshot) {
			st.Request.Fail(message)
			st.IsAuthenticated = false
			st.Token = ""
			st.RefreshToken = ""
		})
		s.logger.Warn(s.logger.WithField(ctx, "username", req.Username), "login failed")
		return err
	}

	s.update("login", func(st *Snapshot) {
		st.Request.Succeed()
		st.IsAuthenticated = true
		st.Token = tokens.Token
		st.RefreshToken = tokens.RefreshToken
	})
	s.logger.Info(s.logger.WithField(ctx, "username", req.Username), "logged in")
	return nil
}

// Register creates a customer account and returns the server's message. It
// does not log the user in.
func (s *Service) Register(ctx context.Context, req apiclient.RegisterRequest) (string, error) {
	s.update("register", func(st *Snapshot) { st.Request.Begin() })

	err := validate.Struct(req)
	var message string
	if err == nil {
		message, err = s.api.Register(ctx, req)
	}
	if err != nil {
		failure := apiclient.ErrorMessage(err, registrationFailedMessage)
		s.update("register", func(st *Snapshot) { st.Request.Fail(failure) })
		return "", err
	}
	s.update("register", func(st *Snapshot) { st.Request.Succeed() })
	return message, nil
}

// Logout clears persisted tokens and the session. The session is cleared
// even if storage fails, and calling it twice is harmless.
func (s *Service) Logout(ctx context.Context) error {
	err := s.creds.Clear(ctx)
	s.ForceLogout(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to clear stored credentials", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Logout failed: could not clear local storage")
	}
	return nil
}

// ForceLogout resets the session without touching storage.
func (s *Service) ForceLogout(ctx context.Context) {
	s.update("logout", func(st *Snapshot) {
		st.Token = ""
		st.RefreshToken = ""
		st.IsAuthenticated = false
		st.Request.Error = ""
	})
}

// SetTokens records rotated tokens after a refresh.
func (s *Service) SetTokens(ctx context.Context, tokens session.Tokens) {
	s.update("refresh", func(st *Snapshot) {
		st.Token = tokens.AccessToken
		if tokens.RefreshToken != "" {
			st.RefreshToken = tokens.RefreshToken
		}
	})
}

// Claims decodes the current access token for display. It returns nil when
// there is no session or the token is not a JWT.
func (s *Service) Claims() *pkgauth.Claims {
	token := s.Snapshot().Token
	if token == "" {
		return nil
	}
	claims, err := pkgauth.ParseUnverified(token)
	if err != nil {
		return nil
	}
	return claims
}
