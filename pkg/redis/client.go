// Package redis backs the shared credential store. Several CLI processes or
// hosts signed in as the same customer read and rotate one token pair.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labujaya/lastbite/pkg/config"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	defaultNamespace = "lb"
	credentialScope  = "token"
)

// Nil is returned by Get when the key does not exist.
var Nil = redis.Nil

var errNotConnected = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

type Client struct {
	kv        cmdable
	conn      *redis.Client
	namespace string
	ttl       time.Duration
}

// New connects and pings within the dial timeout.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)

	pingCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	client := &Client{kv: conn, conn: conn, namespace: cfg.Namespace, ttl: cfg.TokenTTL}
	if logg != nil {
		logg.Debug(logg.WithFields(ctx, map[string]any{
			"redis_addr": opts.Addr,
			"namespace":  client.prefix(),
		}), "redis credential store connected")
	}
	return client, nil
}

// optionsFromConfig prefers the URL; pool and timeout knobs fill whatever the
// URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt(&opts.DB, cfg.DB)
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.kv == nil {
		return errNotConnected
	}
	return c.kv.Set(ctx, key, value, ttl).Err()
}

// Get returns the value at key. A missing key yields Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.kv == nil {
		return "", errNotConnected
	}
	return c.kv.Get(ctx, key).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.kv == nil {
		return errNotConnected
	}
	return c.kv.Del(ctx, keys...).Err()
}

// CredentialKey namespaces a credential name, e.g. lb:token:userToken.
func (c *Client) CredentialKey(name string) string {
	parts := []string{c.prefix(), credentialScope}
	if name = strings.TrimSpace(name); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ":")
}

// CredentialTTL is how long stored credentials live; zero keeps them until
// logout.
func (c *Client) CredentialTTL() time.Duration {
	return c.ttl
}

func (c *Client) Ping(ctx context.Context) error {
	if c.kv == nil {
		return errNotConnected
	}
	return c.kv.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) prefix() string {
	if ns := strings.Trim(strings.TrimSpace(c.namespace), ":"); ns != "" {
		return ns
	}
	return defaultNamespace
}
