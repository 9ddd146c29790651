package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionBackend selects where the session triple is persisted.
type SessionBackend string

const (
	// SessionBackendFile keeps the session in a JSON file on local disk.
	SessionBackendFile SessionBackend = "file"
	// SessionBackendRedis keeps the session in Redis so several console
	// processes share one operator session.
	SessionBackendRedis SessionBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionBackend.
func (b *SessionBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "file", "redis":
		*b = SessionBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionBackend: %q (valid options: file, redis)", v)
	}
}

// SessionConfig configures the persistent session store.
type SessionConfig struct {
	Backend SessionBackend `env:"BACKEND" envDefault:"file"`

	// Path is the session file for the file backend. Empty means
	// ~/.olympiad-console/session.json.
	Path string `env:"PATH"`

	// Prefix and TTL apply to the redis backend. A zero TTL keeps keys until logout.
	Prefix string        `env:"PREFIX" envDefault:"olympiad:"`
	TTL    time.Duration `env:"TTL"    envDefault:"0s"`
}

// Sanitize normalises the session store settings.
func (c *SessionConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = SessionBackendFile
	}
	c.Path = strings.TrimSpace(c.Path)
	c.Prefix = strings.TrimSpace(c.Prefix)
	if c.TTL < 0 {
		c.TTL = 0
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}
