// Package notifications subscribes signed-in customers to their order status
// topic and surfaces each update as a success notification.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labujaya/lastbite/pkg/enums"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/metrics"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
)

const (
	defaultReconnectDelay    = 5 * time.Second
	defaultMaxReconnectDelay = time.Minute
	defaultStableAfter       = 30 * time.Second
)

var errConnectionClosed = errors.New("notification connection closed")

// Transport delivers message bodies published to destination until ctx is
// canceled or the connection drops.
type Transport interface {
	Listen(ctx context.Context, destination string, deliver func([]byte)) error
}

type notifier interface {
	Show(message string, typ enums.ModalType)
}

type RegistryParams struct {
	Transport         Transport
	Notifier          notifier
	Logger            *logger.Logger
	Metrics           *metrics.ClientMetrics
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// StableAfter is how long a connection must stay up before the
	// reconnect backoff starts over from ReconnectDelay.
	StableAfter time.Duration
	// OnUpdate runs after the notification is shown.
	OnUpdate func(ctx context.Context, update OrderUpdate)
}

// Registry keeps at most one live subscription per user.
type Registry struct {
	transport    Transport
	notifier     notifier
	logg         *logger.Logger
	metrics      *metrics.ClientMetrics
	reconnect    time.Duration
	maxReconnect time.Duration
	stableAfter  time.Duration
	onUpdate     func(ctx context.Context, update OrderUpdate)

	mu      sync.Mutex
	clients map[types.ID]*subscription
	// ended holds the error of subscriptions that stopped on their own until
	// Stop collects it or the user subscribes again.
	ended map[types.ID]error
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Transport == nil {
		return nil, fmt.Errorf("notification transport is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	reconnect := params.ReconnectDelay
	if reconnect <= 0 {
		reconnect = defaultReconnectDelay
	}
	maxReconnect := params.MaxReconnectDelay
	if maxReconnect < reconnect {
		maxReconnect = defaultMaxReconnectDelay
	}
	stableAfter := params.StableAfter
	if stableAfter <= 0 {
		stableAfter = defaultStableAfter
	}
	return &Registry{
		transport:    params.Transport,
		notifier:     params.Notifier,
		logg:         logg,
		metrics:      params.Metrics,
		reconnect:    reconnect,
		maxReconnect: maxReconnect,
		stableAfter:  stableAfter,
		onUpdate:     params.OnUpdate,
		clients:      make(map[types.ID]*subscription),
		ended:        make(map[types.ID]error),
	}, nil
}

// Start subscribes userID. It is a no-op when the user already has a live
// subscription. The subscription outlives ctx's cancellation; use Stop.
func (r *Registry) Start(ctx context.Context, userID types.ID) error {
	if userID.IsZero() {
		return fmt.Errorf("user id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[userID]; ok {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	r.clients[userID] = sub
	delete(r.ended, userID)
	go func() {
		defer close(sub.done)
		sub.err = r.run(runCtx, userID)
		r.release(userID, sub)
	}()
	return nil
}

// release drops a subscription whose run loop returned without Stop, so the
// user can be subscribed again.
func (r *Registry) release(userID types.ID, sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.cancel()
	if r.clients[userID] != sub {
		return
	}
	delete(r.clients, userID)
	if sub.err != nil {
		r.ended[userID] = sub.err
	}
}

// Active reports whether userID has a subscription.
func (r *Registry) Active(userID types.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[userID]
	return ok
}

// Stop ends userID's subscription and waits for it to finish. If the
// subscription already ended on its own, Stop returns the error it ended with.
func (r *Registry) Stop(userID types.ID) error {
	r.mu.Lock()
	sub, ok := r.clients[userID]
	delete(r.clients, userID)
	endedErr := r.ended[userID]
	delete(r.ended, userID)
	r.mu.Unlock()
	if !ok {
		return endedErr
	}
	sub.cancel()
	<-sub.done
	return sub.err
}

// Close stops every live subscription. Errors of subscriptions that already
// ended were logged when they ended and are discarded.
func (r *Registry) Close() error {
	r.mu.Lock()
	ids := make([]types.ID, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	clear(r.ended)
	r.mu.Unlock()

	var err error
	for _, id := range ids {
		err = multierr.Append(err, r.Stop(id))
	}
	return err
}

// run listens until ctx is canceled, reconnecting with capped exponential
// backoff whenever the connection drops. The backoff starts over after a
// connection that stayed up for stableAfter. A typed error that is not retryable,
// such as a missing session, ends the subscription.
func (r *Registry) run(ctx context.Context, userID types.ID) error {
	destination := Topic(userID)
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"user_id":     userID.String(),
		"destination": destination,
	})
	r.logg.Info(logCtx, "subscribing to order updates")

	newBackoff := func() retry.Backoff {
		return retry.WithCappedDuration(r.maxReconnect, retry.NewExponential(r.reconnect))
	}
	backoff := newBackoff()
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		return backoff.Next()
	})
	err := retry.Do(ctx, next, func(ctx context.Context) error {
		connected := time.Now()
		listenErr := r.transport.Listen(ctx, destination, func(body []byte) {
			r.process(ctx, userID, body)
		})
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(connected) >= r.stableAfter {
			backoff = newBackoff()
		}
		if listenErr == nil {
			listenErr = errConnectionClosed
		}
		if pkgerrors.As(listenErr) != nil && !pkgerrors.IsRetryable(listenErr) {
			r.logg.Error(logCtx, "order updates stopped", listenErr)
			return listenErr
		}
		r.metrics.IncReconnect()
		r.logg.Warn(r.logg.WithField(logCtx, "error", listenErr.Error()), "order updates disconnected, reconnecting")
		return retry.RetryableError(listenErr)
	})
	if ctx.Err() != nil {
		r.logg.Info(logCtx, "order updates unsubscribed")
		return nil
	}
	return err
}
