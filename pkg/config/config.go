package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/labujaya/lastbite/pkg/env"
)

type Config struct {
	App       AppConfig
	API       APIConfig
	WebSocket WebSocketConfig
	Tokens    TokenStoreConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Tokens.FilePath = env.ExpandHome(cfg.Tokens.FilePath)
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	if _, err := c.API.ParsedBaseURL(); err != nil {
		return err
	}
	switch c.Tokens.Backend() {
	case TokenStoreFile:
		if strings.TrimSpace(c.Tokens.FilePath) == "" {
			return fmt.Errorf("%s is required for the file token store", EnvTokenFile)
		}
	case TokenStoreRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis token store", EnvRedisURL, EnvRedisAddr)
		}
	case TokenStoreMemory:
	default:
		return fmt.Errorf("unknown token store %q", c.Tokens.Store)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"LASTBITE_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"LASTBITE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LASTBITE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"LASTBITE_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"LASTBITE_API_TIMEOUT" default:"15s"`
}

// ParsedBaseURL validates the configured host URL.
func (a APIConfig) ParsedBaseURL() (*url.URL, error) {
	raw := strings.TrimSpace(a.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("%s is required", EnvAPIBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s must be http or https, got %q", EnvAPIBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s must include a host", EnvAPIBaseURL)
	}
	return u, nil
}

// APIRoot returns the REST root, which lives under /api on the host.
func (a APIConfig) APIRoot() string {
	return strings.TrimRight(strings.TrimSpace(a.BaseURL), "/") + APIPathPrefix
}

type WebSocketConfig struct {
	URL               string        `envconfig:"LASTBITE_WS_URL"`
	Heartbeat         time.Duration `envconfig:"LASTBITE_WS_HEARTBEAT" default:"10s"`
	ReconnectDelay    time.Duration `envconfig:"LASTBITE_WS_RECONNECT_DELAY" default:"5s"`
	MaxReconnectDelay time.Duration `envconfig:"LASTBITE_WS_MAX_RECONNECT_DELAY" default:"1m"`
}

// Endpoint returns the configured WebSocket URL, deriving ws(s)://host/ws from
// the API base URL when none is set.
func (w WebSocketConfig) Endpoint(api APIConfig) (string, error) {
	if strings.TrimSpace(w.URL) != "" {
		return strings.TrimSpace(w.URL), nil
	}
	u, err := api.ParsedBaseURL()
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	derived := url.URL{Scheme: scheme, Host: u.Host, Path: WebSocketPath}
	return derived.String(), nil
}

type TokenStoreConfig struct {
	Store    string `envconfig:"LASTBITE_TOKEN_STORE" default:"file"`
	FilePath string `envconfig:"LASTBITE_TOKEN_FILE" default:"~/.lastbite/credentials.json"`
}

// Backend returns the normalized token store name.
func (t TokenStoreConfig) Backend() string {
	store := strings.ToLower(strings.TrimSpace(t.Store))
	if store == "" {
		return TokenStoreFile
	}
	return store
}

type RedisConfig struct {
	URL          string        `envconfig:"LASTBITE_REDIS_URL"`
	Address      string        `envconfig:"LASTBITE_REDIS_ADDR"`
	Password     string        `envconfig:"LASTBITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LASTBITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LASTBITE_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"LASTBITE_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"LASTBITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LASTBITE_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"LASTBITE_REDIS_WRITE_TIMEOUT" default:"3s"`
	Namespace    string        `envconfig:"LASTBITE_REDIS_NAMESPACE" default:"lb"`
	TokenTTL     time.Duration `envconfig:"LASTBITE_REDIS_TOKEN_TTL"`
}

type MetricsConfig struct {
	Addr string `envconfig:"LASTBITE_METRICS_ADDR"`
}
