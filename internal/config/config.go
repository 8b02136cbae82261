package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	DeriveGate DeriveGateConfig `mapstructure:"derive_gate"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	AdminKey       string `mapstructure:"admin_key"`
	AdminSecretKey string `mapstructure:"admin_secret_key"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type PolymarketConfig struct {
	ClobURL string `mapstructure:"clob_url"`
	ChainID int64  `mapstructure:"chain_id"`

	// L1 key of the signing EOA. Never logged.
	PrivateKey string `mapstructure:"private_key"`
	// Safe/proxy wallet holding the funds; empty means the signer holds them.
	FunderAddress string `mapstructure:"funder_address"`
	// Optional override: 0=EOA, 1=Poly proxy, 2=Gnosis Safe
	SignatureType *int `mapstructure:"signature_type"`

	// Statically configured L2 credentials (optional)
	ApiKey        string `mapstructure:"api_key"`
	ApiSecret     string `mapstructure:"api_secret"`
	ApiPassphrase string `mapstructure:"api_passphrase"`

	HTTPTimeoutMs int `mapstructure:"http_timeout_ms"`
}

type DeriveGateConfig struct {
	MaxAttemptsPerWindow int `mapstructure:"max_attempts_per_window"`
	WindowSeconds        int `mapstructure:"window_seconds"`
	CooldownSeconds      int `mapstructure:"cooldown_seconds"`
	BlockMinutes         int `mapstructure:"block_minutes"`
}

type AuditConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
}

func Load() (*Config, error) {
	// A local .env is optional; real environments inject variables directly.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. POLYCREDS_POLYMARKET_PRIVATE_KEY
	viper.SetEnvPrefix("polycreds")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Keys without a default are only visible to AutomaticEnv once bound.
	for _, key := range []string{
		"polymarket.private_key",
		"polymarket.funder_address",
		"polymarket.signature_type",
		"polymarket.api_key",
		"polymarket.api_secret",
		"polymarket.api_passphrase",
		"database.dsn",
		"redis.addr",
		"redis.password",
	} {
		_ = viper.BindEnv(key)
	}

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("auth.admin_secret_key", "")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("rate_limit.qps", 5)
	viper.SetDefault("rate_limit.burst", 10)
	viper.SetDefault("polymarket.clob_url", "https://clob.polymarket.com")
	viper.SetDefault("polymarket.chain_id", 137)
	viper.SetDefault("polymarket.http_timeout_ms", 10000)
	viper.SetDefault("derive_gate.max_attempts_per_window", 2)
	viper.SetDefault("derive_gate.window_seconds", 60)
	viper.SetDefault("derive_gate.cooldown_seconds", 10)
	viper.SetDefault("derive_gate.block_minutes", 30)
	viper.SetDefault("audit.buffer_size", 1000)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.audit_list_key", "polycreds:audit")
	viper.SetDefault("redis.audit_list_max", 10000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
