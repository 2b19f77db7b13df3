package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "cleantech-console/common/config"

	"github.com/joho/godotenv"
)

// Config is the cleantech-console configuration.
type Config struct {
	HTTP struct {
		Addr string
	}
	Backend BackendConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	MQTT MQTTConfig
	Log  struct {
		Level  string
		Format string
	}
	Console ConsoleConfig
}

// BackendConfig points at the facility-management REST API.
type BackendConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// MQTTConfig enables the mutation event bus between console replicas.
type MQTTConfig struct {
	commoncfg.MQTTConfig
	Enabled     bool
	TopicPrefix string
}

// ConsoleConfig tunes list screens, sessions and workspace eviction.
type ConsoleConfig struct {
	PageSize      int
	SessionTTL    time.Duration
	StateTTL      time.Duration
	WorkspaceIdle time.Duration
	SweepInterval time.Duration
	// EventStream carries mutation events over Redis when MQTT is off.
	EventStream string
	// EventStreamMaxLen caps the Redis event stream.
	EventStreamMaxLen int
}

// LoadEnv loads the given .env files that exist, in order. Variables already
// set in the environment win.
func LoadEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Backend.BaseURL = getEnv("BACKEND_BASE_URL", "http://localhost:5000/api")
	cfg.Backend.Timeout = parseDuration(getEnv("BACKEND_TIMEOUT", "30s"), 30*time.Second)
	cfg.Backend.RetryCount = parseInt(getEnv("BACKEND_RETRY_COUNT", "0"), 0)

	// Without Redis, sessions and screen state live in process memory.
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	// Without a database, the action log is kept in memory.
	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "cleantech_console",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = defaultClientID()
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "cleantech/console/mutations")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Console.PageSize = parseInt(getEnv("CONSOLE_PAGE_SIZE", "10"), 10)
	cfg.Console.SessionTTL = parseDuration(getEnv("CONSOLE_SESSION_TTL", "12h"), 12*time.Hour)
	cfg.Console.StateTTL = parseDuration(getEnv("CONSOLE_STATE_TTL", "168h"), 7*24*time.Hour)
	cfg.Console.WorkspaceIdle = parseDuration(getEnv("CONSOLE_WORKSPACE_IDLE", "30m"), 30*time.Minute)
	cfg.Console.SweepInterval = parseDuration(getEnv("CONSOLE_SWEEP_INTERVAL", "1m"), time.Minute)
	cfg.Console.EventStream = getEnv("CONSOLE_EVENT_STREAM", "cleantech:console:events")
	cfg.Console.EventStreamMaxLen = parseInt(getEnv("CONSOLE_EVENT_STREAM_MAXLEN", "10000"), 10000)

	return cfg
}

// defaultClientID keeps replicas on the same host apart on the broker.
func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "cleantech-console-" + host + "-" + strconv.Itoa(os.Getpid())
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
