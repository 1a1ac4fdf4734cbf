// Package app wires the API client, credential storage and every store into
// one object with a Start/Stop lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labujaya/lastbite/internal/auth"
	"github.com/labujaya/lastbite/internal/cart"
	"github.com/labujaya/lastbite/internal/menu"
	"github.com/labujaya/lastbite/internal/modal"
	"github.com/labujaya/lastbite/internal/notifications"
	"github.com/labujaya/lastbite/internal/orders"
	"github.com/labujaya/lastbite/internal/reviews"
	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/internal/users"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/auth/session"
	"github.com/labujaya/lastbite/pkg/config"
	"github.com/labujaya/lastbite/pkg/enums"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/metrics"
	"github.com/labujaya/lastbite/pkg/redis"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Params configures New. Only Config is required; the rest replace the
// defaults derived from it.
type Params struct {
	Config *config.Config
	Logger *logger.Logger
	// Transport carries every REST call, including token refreshes.
	Transport http.RoundTripper
	// Store replaces the credential store selected by Config.Tokens.
	Store session.Store
	// Realtime replaces the STOMP transport for order updates.
	Realtime notifications.Transport
	// NoRealtime keeps sign-in from subscribing to order updates; Watch
	// still subscribes.
	NoRealtime    bool
	OnOrderUpdate func(ctx context.Context, update notifications.OrderUpdate)
}

type App struct {
	cfg       *config.Config
	logg      *logger.Logger
	registry  *prometheus.Registry
	redis     *redis.Client
	creds     *session.Manager
	refresher *apiclient.Refresher
	realtime  bool

	API           *apiclient.Client
	Hub           *state.Hub
	Auth          *auth.Service
	Users         *users.Service
	Cart          *cart.Service
	Menu          *menu.Service
	Orders        *orders.Service
	Reviews       *reviews.Service
	Modal         *modal.Service
	Notifications *notifications.Registry
}

func New(ctx context.Context, params Params) (*App, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	a := &App{
		cfg:      cfg,
		logg:     logg,
		registry: prometheus.NewRegistry(),
		realtime: !params.NoRealtime,
		Hub:      state.NewHub(),
	}
	clientMetrics := metrics.NewClientMetrics(a.registry)

	store := params.Store
	if store == nil {
		var err error
		store, err = a.credentialStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	creds, err := session.NewManager(store)
	if err != nil {
		return nil, err
	}
	a.creds = creds

	root := cfg.API.APIRoot()
	a.refresher, err = apiclient.NewRefresher(root, creds,
		apiclient.WithRefreshTransport(params.Transport),
		apiclient.WithRefreshLogger(logg),
		apiclient.WithRefreshMetrics(clientMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("build token refresher: %w", err)
	}
	a.API, err = apiclient.NewClient(root,
		apiclient.WithTransport(params.Transport),
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithAuth(creds, a.refresher),
		apiclient.WithLogger(logg),
		apiclient.WithMetrics(clientMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	if err := a.buildStores(); err != nil {
		return nil, err
	}

	realtime := params.Realtime
	if realtime == nil {
		endpoint, err := cfg.WebSocket.Endpoint(cfg.API)
		if err != nil {
			return nil, err
		}
		realtime, err = notifications.NewStompTransport(endpoint, creds, cfg.WebSocket.Heartbeat)
		if err != nil {
			return nil, err
		}
	}
	a.Notifications, err = notifications.NewRegistry(notifications.RegistryParams{
		Transport:         realtime,
		Notifier:          a.Modal,
		Logger:            logg,
		Metrics:           clientMetrics,
		ReconnectDelay:    cfg.WebSocket.ReconnectDelay,
		MaxReconnectDelay: cfg.WebSocket.MaxReconnectDelay,
		StableAfter:       cfg.WebSocket.Heartbeat,
		OnUpdate:          params.OnOrderUpdate,
	})
	if err != nil {
		return nil, err
	}

	a.refresher.OnRefreshed(func(ctx context.Context, tokens session.Tokens) {
		a.Auth.SetTokens(ctx, tokens)
	})
	a.refresher.OnForcedLogout(func(ctx context.Context) {
		a.logg.Warn(ctx, "session expired, signing out")
		a.Auth.ForceLogout(ctx)
		a.clearUserData()
		if err := a.Notifications.Close(); err != nil {
			a.logg.Error(ctx, "failed to stop order updates", err)
		}
	})
	return a, nil
}

func (a *App) credentialStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.Tokens.Backend() {
	case config.TokenStoreRedis:
		client, err := redis.New(ctx, a.cfg.Redis, a.logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		a.redis = client
		return session.NewRedisStore(client)
	case config.TokenStoreMemory:
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(a.cfg.Tokens.FilePath)
	}
}

func (a *App) buildStores() error {
	var err error
	a.Modal = modal.NewService(a.Hub)
	if a.Auth, err = auth.NewService(auth.ServiceParams{API: a.API.Auth(), Credentials: a.creds, Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	if a.Users, err = users.NewService(users.ServiceParams{API: a.API.Users(), Uploader: a.API.Uploads(), Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	if a.Cart, err = cart.NewService(cart.ServiceParams{API: a.API.Carts(), Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	if a.Menu, err = menu.NewService(menu.ServiceParams{API: a.API.Menu(), Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	if a.Orders, err = orders.NewService(orders.ServiceParams{API: a.API.Orders(), Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	if a.Reviews, err = reviews.NewService(reviews.ServiceParams{API: a.API.Reviews(), Hub: a.Hub, Logger: a.logg}); err != nil {
		return err
	}
	return nil
}

// Gatherer exposes the client metrics.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.registry
}

// Start restores a persisted session and, when one exists, loads the user's
// data. It reports whether the session is authenticated.
func (a *App) Start(ctx context.Context) (bool, error) {
	a.refresher.Start(ctx)
	authenticated, err := a.Auth.Restore(ctx)
	if err != nil || !authenticated {
		return false, err
	}
	return true, a.bootstrap(ctx, a.realtime)
}

// Login signs in and loads the user's data.
func (a *App) Login(ctx context.Context, req apiclient.LoginRequest) error {
	if err := a.Auth.Login(ctx, req); err != nil {
		return err
	}
	return a.bootstrap(ctx, a.realtime)
}

// Watch loads the user's data and subscribes to order updates until Stop
// or Logout.
func (a *App) Watch(ctx context.Context) error {
	return a.bootstrap(ctx, true)
}

// bootstrap fetches the profile and the cart concurrently. Neither failure
// cancels the other.
func (a *App) bootstrap(ctx context.Context, subscribe bool) error {
	var (
		g       errgroup.Group
		profile *users.Profile
	)
	g.Go(func() error {
		p, err := a.Users.FetchMe(ctx)
		profile = p
		return err
	})
	g.Go(func() error {
		return a.Cart.FetchCart(ctx)
	})
	err := g.Wait()
	if subscribe && profile != nil {
		err = multierr.Append(err, a.Notifications.Start(ctx, profile.ID))
	}
	return err
}

// Logout stops order updates, clears the stored session and drops the
// user's data. Calling it twice is harmless.
func (a *App) Logout(ctx context.Context) error {
	err := multierr.Combine(
		a.Notifications.Close(),
		a.Auth.Logout(ctx),
	)
	a.clearUserData()
	return err
}

func (a *App) clearUserData() {
	a.Cart.Clear()
	a.Users.Clear()
	a.Orders.ResetOrderStatus()
}

// CheckoutStore creates an order for one store's part of the cart and then
// reloads the cart, which no longer holds the ordered items.
func (a *App) CheckoutStore(ctx context.Context, storeName string) (*orders.Order, error) {
	cartID := a.Cart.Snapshot().CartID
	if cartID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	sellerID, ok := a.Cart.SellerID(storeName)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("store %q is not in the cart", storeName))
	}
	order, err := a.Orders.CreateOrder(ctx, cartID, sellerID)
	if err != nil {
		return nil, err
	}
	if err := a.Cart.FetchCart(ctx); err != nil {
		a.logg.Warn(a.logg.WithStoreName(ctx, storeName), "cart reload after checkout failed")
	}
	return order, nil
}

// Notify shows err to the user with the message the failing store kept.
func (a *App) Notify(err error, fallback string) {
	if err == nil {
		return
	}
	a.Modal.Show(apiclient.ErrorMessage(err, fallback), enums.ModalTypeError)
}

// UserID is the signed-in user's id, if the profile is loaded.
func (a *App) UserID() (types.ID, bool) {
	user := a.Users.Snapshot().User
	if user == nil {
		return "", false
	}
	return user.ID, true
}

// Stop waits for background cart syncs and releases every connection.
func (a *App) Stop() error {
	a.Cart.Wait()
	err := a.Notifications.Close()
	a.refresher.Stop()
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	a.Hub.Close()
	return err
}
