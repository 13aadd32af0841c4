package config

import (
	"time"

	pkgconfig "brokenweave/pkg/config"
)

// FeedConfig tunes the admin notification widget.
type FeedConfig struct {
	RecentLimit  int           `yaml:"recent_limit"`
	MaxItems     int           `yaml:"max_items"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	DedupTTL     time.Duration `yaml:"dedup_ttl"`
	HubBuffer    int           `yaml:"hub_buffer"`
	OutboxPeriod time.Duration `yaml:"outbox_period"`
	// Instance names this process's broadcast queue; empty means hostname
	// plus a random suffix.
	Instance     string        `yaml:"instance"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	GuestTTL      time.Duration `yaml:"guest_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	DB      pkgconfig.DBConfig     `yaml:"db"`
	MQ      pkgconfig.MQConfig     `yaml:"mq"`
	Redis   pkgconfig.RedisConfig  `yaml:"redis"`
	JWT     pkgconfig.JWTConfig    `yaml:"jwt"`
	Server  pkgconfig.ServerConfig `yaml:"server"`
	OTel    pkgconfig.OTelConfig   `yaml:"otel"`
	Feed    FeedConfig             `yaml:"feed"`
	Session SessionConfig          `yaml:"session"`
}

// Load reads the layered configuration selected by CONFIG_ENV / CONFIG_DIR and
// applies environment overrides on top.
func Load() (*Config, error) {
	env := pkgconfig.GetConfigEnv()
	configDir := pkgconfig.GetEnv("CONFIG_DIR", "config")

	cfg := Default()
	if err := pkgconfig.Decode(env, configDir, cfg); err != nil {
		return nil, err
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideOTelFromEnv(&cfg.OTel)

	return cfg, nil
}

// Default returns the values used when a key is absent from every layer.
func Default() *Config {
	return &Config{
		DB: pkgconfig.DBConfig{
			Host:               "localhost",
			Port:               5432,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		MQ:     pkgconfig.MQConfig{MaxRetries: 3},
		Redis:  pkgconfig.RedisConfig{Addr: "localhost:6379"},
		Server: pkgconfig.ServerConfig{Port: ":8080", ReadTimeout: 15 * time.Second, WriteTimeout: 30 * time.Second},
		OTel:   pkgconfig.OTelConfig{ServiceName: "brokenweave", ServiceVersion: "dev"},
		Feed: FeedConfig{
			RecentLimit:  20,
			MaxItems:     100,
			CallTimeout:  5 * time.Second,
			DedupTTL:     24 * time.Hour,
			HubBuffer:    64,
			OutboxPeriod: time.Second,
		},
		Session: SessionConfig{TTL: 12 * time.Hour, GuestTTL: 2 * time.Hour, SweepInterval: time.Minute},
	}
}
