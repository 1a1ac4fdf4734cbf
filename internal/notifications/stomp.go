package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"github.com/google/uuid"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
)

const stompSubprotocol = "v12.stomp"

type accessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StompTransport speaks STOMP 1.2 over a WebSocket connection.
type StompTransport struct {
	URL        string
	Tokens     accessTokenSource
	Heartbeat  time.Duration
	HTTPClient *http.Client
}

func NewStompTransport(endpoint string, tokens accessTokenSource, heartbeat time.Duration) (*StompTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return nil, fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("websocket url host is required")
	}
	return &StompTransport{URL: u.String(), Tokens: tokens, Heartbeat: heartbeat}, nil
}

// Listen connects, subscribes to destination and delivers message bodies
// until ctx is canceled or the broker connection fails.
func (t *StompTransport) Listen(ctx context.Context, destination string, deliver func([]byte)) error {
	header := http.Header{}
	var connOpts []func(*stomp.Conn) error
	if t.Tokens != nil {
		token, err := t.Tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
		if token == "" {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "signed out, order updates need a session")
		}
		header.Set("Authorization", "Bearer "+token)
		connOpts = append(connOpts, stomp.ConnOpt.Header("Authorization", "Bearer "+token))
	}

	ws, _, err := websocket.Dial(ctx, t.URL, &websocket.DialOptions{
		HTTPClient:   t.HTTPClient,
		HTTPHeader:   header,
		Subprotocols: []string{stompSubprotocol},
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.URL, err)
	}
	defer ws.CloseNow()

	u, _ := url.Parse(t.URL)
	connOpts = append(connOpts, stomp.ConnOpt.Host(u.Hostname()))
	if t.Heartbeat > 0 {
		connOpts = append(connOpts, stomp.ConnOpt.HeartBeat(t.Heartbeat, t.Heartbeat))
	}
	conn, err := stomp.Connect(websocket.NetConn(ctx, ws, websocket.MessageText), connOpts...)
	if err != nil {
		return fmt.Errorf("stomp connect: %w", err)
	}

	sub, err := conn.Subscribe(destination, stomp.AckAuto, stomp.SubscribeOpt.Id(uuid.NewString()))
	if err != nil {
		_ = conn.Disconnect()
		return fmt.Errorf("subscribe %s: %w", destination, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			_ = conn.Disconnect()
			return ctx.Err()
		case msg, ok := <-sub.C:
			if !ok {
				return errConnectionClosed
			}
			if msg.Err != nil {
				return msg.Err
			}
			deliver(msg.Body)
		}
	}
}
