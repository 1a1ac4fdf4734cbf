package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/labujaya/lastbite/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestCredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{kv: mock, ttl: time.Hour}

	key := client.CredentialKey("userToken")
	if err := client.Set(ctx, key, "token-value", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	token, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if token != "token-value" {
		t.Fatalf("expected stored token, got %q", token)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, Nil) {
		t.Fatalf("expected Nil after delete, got %v", err)
	}
	if client.CredentialTTL() != time.Hour {
		t.Fatalf("unexpected ttl %s", client.CredentialTTL())
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.CredentialKey("refreshToken"); got != "lb:token:refreshToken" {
		t.Fatalf("unexpected credential key %s", got)
	}
	if got := client.CredentialKey(" "); got != "lb:token" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	scoped := &Client{namespace: "lb-test:"}
	if got := scoped.CredentialKey("userToken"); got != "lb-test:token:userToken" {
		t.Fatalf("unexpected scoped key %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "localhost:6379",
		DB:          2,
		PoolSize:    4,
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 4 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts, err = optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 8})
	if err != nil {
		t.Fatalf("url options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "pw" || opts.PoolSize != 8 {
		t.Fatalf("unexpected url options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
