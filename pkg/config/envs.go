package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	APIPathPrefix = "/api"
	WebSocketPath = "/ws/websocket"

	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

const (
	EnvAppEnv              = "LASTBITE_APP_ENV"
	EnvLogLevel            = "LASTBITE_LOG_LEVEL"
	EnvAPIBaseURL          = "LASTBITE_API_BASE_URL"
	EnvAPITimeout          = "LASTBITE_API_TIMEOUT"
	EnvWSURL               = "LASTBITE_WS_URL"
	EnvWSHeartbeat         = "LASTBITE_WS_HEARTBEAT"
	EnvWSReconnectDelay    = "LASTBITE_WS_RECONNECT_DELAY"
	EnvWSMaxReconnectDelay = "LASTBITE_WS_MAX_RECONNECT_DELAY"
	EnvTokenStore          = "LASTBITE_TOKEN_STORE"
	EnvTokenFile           = "LASTBITE_TOKEN_FILE"
	EnvRedisURL            = "LASTBITE_REDIS_URL"
	EnvRedisAddr           = "LASTBITE_REDIS_ADDR"
	EnvMetricsAddr         = "LASTBITE_METRICS_ADDR"
)
