package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Cron      CronConfig      `mapstructure:"cron"`
	Donation  DonationConfig  `mapstructure:"donation"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type AdminConfig struct {
	// AccessKey is exchanged for a JWT at /admin/login.
	AccessKey string        `mapstructure:"access_key"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Email     string        `mapstructure:"email"`
}

type FeedConfig struct {
	// Source selects the change feed implementation: pgnotify | webhook | bus.
	Source       string        `mapstructure:"source"`
	Channel      string        `mapstructure:"channel"`
	BackoffMin   time.Duration `mapstructure:"backoff_min"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
}

type StreamConfig struct {
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type DashboardConfig struct {
	QRCodeSize int `mapstructure:"qrcode_size"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Reconcile string `mapstructure:"reconcile"`
}

type DonationConfig struct {
	MaxCharitiesPerEvent int    `mapstructure:"max_charities_per_event"`
	DefaultAmount        string `mapstructure:"default_amount"`
	DefaultCurrency      string `mapstructure:"default_currency"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("admin.token_ttl", "12h")
	v.SetDefault("admin.email", "admin@localhost")
	v.SetDefault("feed.source", "pgnotify")
	v.SetDefault("feed.channel", "donation_inserts")
	v.SetDefault("feed.backoff_min", "1s")
	v.SetDefault("feed.backoff_max", "30s")
	v.SetDefault("feed.query_timeout", "10s")
	v.SetDefault("feed.retry_max", 5)
	v.SetDefault("stream.subscriber_buffer", 16)
	v.SetDefault("stream.heartbeat_interval", "15s")
	v.SetDefault("dashboard.qrcode_size", 256)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.reconcile", "@every 1m")
	v.SetDefault("donation.max_charities_per_event", 4)
	v.SetDefault("donation.default_amount", "3.00")
	v.SetDefault("donation.default_currency", "usd")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
