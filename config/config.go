package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Session     SessionConfig     `yaml:"session"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Log         LogConfig         `yaml:"log"`
	Redis       RedisConfig       `yaml:"redis"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	// CronSecret guards /cron/close-sessions when set.
	CronSecret string `yaml:"cron_secret"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// SessionConfig holds the thresholds of the session lifecycle and the stale-session reaper.
type SessionConfig struct {
	MinSessionMinutes       int  `yaml:"min_session_minutes"`
	StaleAfterMinutes       int  `yaml:"stale_after_minutes"`
	IdleAfterMinutes        int  `yaml:"idle_after_minutes"`
	NoTelemetryGraceMinutes int  `yaml:"no_telemetry_grace_minutes"`
	SweepIntervalMinutes    int  `yaml:"sweep_interval_minutes"`
	SweepEnabled            bool `yaml:"sweep_enabled"`

	MinSessionDuration time.Duration `yaml:"-"`
	StaleAfter         time.Duration `yaml:"-"`
	IdleAfter          time.Duration `yaml:"-"`
	NoTelemetryGrace   time.Duration `yaml:"-"`
	SweepInterval      time.Duration `yaml:"-"`
}

// LeaderboardConfig sizes the leaderboard slices.
type LeaderboardConfig struct {
	TopN    int `yaml:"top_n"`
	BottomN int `yaml:"bottom_n"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// RedisConfig enables the distributed machine lock and the live event stream.
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	Stream       string `yaml:"stream"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
	LockTTLMs    int    `yaml:"lock_ttl_ms"`
}

// MQTTConfig enables telemetry ingestion from an MQTT broker.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path, applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied. Used by tests and tools.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_DSN":      &c.Database.DSN,
		"CRON_SECRET":       &c.Server.CronSecret,
		"REDIS_ADDR":        &c.Redis.Addr,
		"MQTT_BROKER":       &c.MQTT.Broker,
		"VAPID_PUBLIC_KEY":  &c.Push.PublicKey,
		"VAPID_PRIVATE_KEY": &c.Push.PrivateKey,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 60
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}

	s := &c.Session
	defaultMinutes(&s.MinSessionMinutes, 10)
	defaultMinutes(&s.StaleAfterMinutes, 15)
	defaultMinutes(&s.IdleAfterMinutes, 15)
	defaultMinutes(&s.NoTelemetryGraceMinutes, 30)
	defaultMinutes(&s.SweepIntervalMinutes, 15)
	s.MinSessionDuration = time.Duration(s.MinSessionMinutes) * time.Minute
	s.StaleAfter = time.Duration(s.StaleAfterMinutes) * time.Minute
	s.IdleAfter = time.Duration(s.IdleAfterMinutes) * time.Minute
	s.NoTelemetryGrace = time.Duration(s.NoTelemetryGraceMinutes) * time.Minute
	s.SweepInterval = time.Duration(s.SweepIntervalMinutes) * time.Minute

	if c.Leaderboard.TopN <= 0 {
		c.Leaderboard.TopN = 3
	}
	if c.Leaderboard.BottomN <= 0 {
		c.Leaderboard.BottomN = 5
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Redis.Stream == "" {
		c.Redis.Stream = "farmtrack:live-events"
	}
	if c.Redis.StreamMaxLen <= 0 {
		c.Redis.StreamMaxLen = 1000
	}
	if c.Redis.LockTTLMs <= 0 {
		c.Redis.LockTTLMs = 5000
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "farmtrackd"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "farmtrack/telemetry/+"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
}

func defaultMinutes(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
