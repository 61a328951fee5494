package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	MySQL     DatabaseConfig  `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Quota     QuotaConfig     `mapstructure:"quota"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers            []string      `mapstructure:"brokers"`
	NotificationsTopic string        `mapstructure:"notifications_topic"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
}

// WebhookConfig tunes the outbound dispatcher pool. RequestTimeout bounds each
// of the two HTTP calls (challenge, delivery) independently.
type WebhookConfig struct {
	WorkerCount    int           `mapstructure:"worker_count"`
	QueueSize      int           `mapstructure:"queue_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// QuotaConfig carries the fallback monthly limit used when a tenant row has
// no plan-specific value. Plan resolution itself lives in the billing service.
type QuotaConfig struct {
	DefaultMonthlyLeads int64         `mapstructure:"default_monthly_leads"`
	LockTTL             time.Duration `mapstructure:"lock_ttl"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (LEADGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (LEADGW_*)
	v.SetEnvPrefix("LEADGW")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
