// Package config 基于 viper 的配置加载
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// gin 模式：debug / release / test
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 连接池配置
type DatabaseConfig struct {
	Path           string        `mapstructure:"path"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// DispatcherConfig 阻塞调用工作池配置
type DispatcherConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RedisConfig 公告列表缓存；Addr 为空时不启用
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	QuestionsPerMinute float64 `mapstructure:"questions_per_minute"`
	Burst              int     `mapstructure:"burst"`
	// MaxTokens 最多同时跟踪的 token 数，超出后淘汰最久未访问的
	MaxTokens int `mapstructure:"max_tokens"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "communication.sqlite3")
	v.SetDefault("database.max_open_conns", 8)
	v.SetDefault("database.acquire_timeout", 5*time.Second)
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 30*time.Second)
	v.SetDefault("rate_limit.questions_per_minute", 6.0)
	v.SetDefault("rate_limit.burst", 3)
	v.SetDefault("rate_limit.max_tokens", 10000)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "communication")
}

// Load 读取 config.yaml（可选，查找 . 与 ./config），并允许 COMM_ 前缀的环境变量覆盖。
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("COMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("database.max_open_conns must be positive")
	}
	if c.Dispatcher.Workers <= 0 {
		return errors.New("dispatcher.workers must be positive")
	}
	return nil
}
