package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// MQTTConfig holds the broker settings used by the event bus.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GetDSN returns a lib/pq key=value connection string. Values containing
// spaces, quotes or backslashes are single-quoted.
func (c *DatabaseConfig) GetDSN() string {
	parts := []string{
		"host=" + dsnValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + dsnValue(c.User),
		"password=" + dsnValue(c.Password),
		"dbname=" + dsnValue(c.Database),
		"sslmode=" + dsnValue(c.SSLMode),
	}
	if c.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// env reads PREFIX_NAME variables. Unset or unparsable values leave the
// target untouched.
type env string

func (p env) key(name string) string { return string(p) + "_" + name }

func (p env) str(name string, dst *string) {
	if v := os.Getenv(p.key(name)); v != "" {
		*dst = v
	}
}

func (p env) num(name string, dst *int) {
	if v, err := strconv.Atoi(os.Getenv(p.key(name))); err == nil {
		*dst = v
	}
}

func (p env) dur(name string, dst *time.Duration) {
	if v, err := time.ParseDuration(os.Getenv(p.key(name))); err == nil {
		*dst = v
	}
}

// LoadFromEnv overrides fields from <prefix>_HOST, <prefix>_PORT, <prefix>_NAME, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	e := env(prefix)
	e.str("HOST", &c.Host)
	e.num("PORT", &c.Port)
	e.str("USER", &c.User)
	e.str("PASSWORD", &c.Password)
	e.str("NAME", &c.Database)
	e.str("SSLMODE", &c.SSLMode)
	e.num("MAX_CONNS", &c.MaxConns)
	e.num("MAX_IDLE", &c.MaxIdle)
	e.dur("CONN_MAX_LIFETIME", &c.ConnMaxLifetime)
	e.dur("CONNECT_TIMEOUT", &c.ConnectTimeout)
}

// LoadFromEnv overrides fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB, ...
func (c *RedisConfig) LoadFromEnv(prefix string) {
	e := env(prefix)
	e.str("ADDR", &c.Addr)
	e.str("PASSWORD", &c.Password)
	e.num("DB", &c.DB)
	e.num("POOL_SIZE", &c.PoolSize)
	e.dur("DIAL_TIMEOUT", &c.DialTimeout)
}

// LoadFromEnv overrides fields from <prefix>_BROKER, <prefix>_CLIENT_ID, ...
// A QoS outside 0..2 is ignored.
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	e := env(prefix)
	e.str("BROKER", &c.Broker)
	e.str("CLIENT_ID", &c.ClientID)
	e.str("USERNAME", &c.Username)
	e.str("PASSWORD", &c.Password)
	q := -1
	e.num("QOS", &q)
	if q >= 0 && q <= 2 {
		c.QoS = byte(q)
	}
}
