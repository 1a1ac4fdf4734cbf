// Package apiclient talks to the LastBite marketplace REST API.
//
// A Client is a factory of per-domain resources that share one API root and
// JSON encoding. Authenticated resources go through AuthTransport, which
// attaches the stored access token and replays a request once after a
// coordinated token refresh. The menu and auth resources are public.
package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/metrics"
)

const defaultTimeout = 15 * time.Second

var errAPIRootRequired = errors.New("api root url is required")

// AccessTokenSource reads the current access token.
type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenRefresher exchanges a rejected access token for a fresh one.
type TokenRefresher interface {
	Refresh(ctx context.Context, staleToken string) (string, error)
}

// Client builds resources for each backend domain.
type Client struct {
	root      string
	timeout   time.Duration
	base      http.RoundTripper
	tokens    AccessTokenSource
	refresher TokenRefresher
	logger    *logger.Logger
	metrics   *metrics.ClientMetrics

	authed *http.Client
	public *http.Client
}

// Option configures optional client behavior.
type Option func(*Client)

// WithTransport overrides the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.base = rt
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAuth enables bearer tokens and 401 recovery on authenticated resources.
func WithAuth(tokens AccessTokenSource, refresher TokenRefresher) Option {
	return func(c *Client) {
		c.tokens = tokens
		c.refresher = refresher
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logger = logg
		}
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the resource factory for the given API root
// (for example https://api.example.com/api).
func NewClient(apiRoot string, opts ...Option) (*Client, error) {
	root := strings.TrimRight(strings.TrimSpace(apiRoot), "/")
	if root == "" {
		return nil, errAPIRootRequired
	}
	if _, err := url.ParseRequestURI(root); err != nil {
		return nil, err
	}

	client := &Client{
		root:    root,
		timeout: defaultTimeout,
		base:    http.DefaultTransport,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	client.public = &http.Client{Transport: client.base, Timeout: client.timeout}
	authedTransport := client.base
	if client.tokens != nil {
		authedTransport = &AuthTransport{
			Base:      client.base,
			Tokens:    client.tokens,
			Refresher: client.refresher,
		}
	}
	client.authed = &http.Client{Transport: authedTransport, Timeout: client.timeout}
	return client, nil
}

// Root returns the API root every resource path is joined to.
func (c *Client) Root() string {
	return c.root
}

func (c *Client) resource(name, prefix string, public bool) *Resource {
	httpClient := c.authed
	if public {
		httpClient = c.public
	}
	return &Resource{
		name:    name,
		base:    c.root + prefix,
		http:    httpClient,
		logger:  c.logger,
		metrics: c.metrics,
	}
}

// Auth talks to /auth. Login and registration never carry a bearer token, so
// a rejected password is reported as-is instead of triggering a refresh.
func (c *Client) Auth() *AuthAPI {
	return &AuthAPI{r: c.resource("auth", "/auth", true)}
}

func (c *Client) Carts() *CartsAPI {
	return &CartsAPI{r: c.resource("carts", "/carts", false)}
}

// Menu talks to /menu-items without authentication.
func (c *Client) Menu() *MenuAPI {
	return &MenuAPI{r: c.resource("menu", "", true)}
}

func (c *Client) Orders() *OrdersAPI {
	return &OrdersAPI{r: c.resource("orders", "/orders", false)}
}

func (c *Client) Reviews() *ReviewsAPI {
	return &ReviewsAPI{r: c.resource("reviews", "/menu-item-reviews", false)}
}

func (c *Client) Users() *UsersAPI {
	return &UsersAPI{r: c.resource("users", "/users", false)}
}

func (c *Client) Uploads() *UploadsAPI {
	return &UploadsAPI{r: c.resource("uploads", "/upload", false)}
}

// Payments returns an authenticated generic resource rooted at /payments.
func (c *Client) Payments() *Resource {
	return c.resource("payments", "/payments", false)
}

// Sellers returns an authenticated generic resource rooted at /sellers.
func (c *Client) Sellers() *Resource {
	return c.resource("sellers", "/sellers", false)
}
