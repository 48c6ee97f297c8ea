package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Business   BusinessConfig   `mapstructure:"business"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Mode            string `mapstructure:"mode"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DatabaseConfig driver 为空时使用内存仓储
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

func (c DatabaseConfig) Enabled() bool {
	return c.Driver != ""
}

// RedisConfig host 为空时不加分布式锁
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type KafkaTopicConfig struct {
	Lifecycle string `mapstructure:"lifecycle"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type ComplianceConfig struct {
	RestrictedCountries []string `mapstructure:"restricted_countries"`
}

type BusinessConfig struct {
	LockTTLSeconds      int `mapstructure:"lock_ttl_seconds"`
	LockRetryMillis     int `mapstructure:"lock_retry_millis"`
	LockMaxRetries      int `mapstructure:"lock_max_retries"`
	OutboxMaxRetry      int `mapstructure:"outbox_max_retry"`
	OutboxBatchSize     int `mapstructure:"outbox_batch_size"`
	OutboxIntervalMilli int `mapstructure:"outbox_interval_millis"`
}

func (c BusinessConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c BusinessConfig) LockRetry() time.Duration {
	return time.Duration(c.LockRetryMillis) * time.Millisecond
}

func (c BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(c.OutboxIntervalMilli) * time.Millisecond
}

// LogConfig 对应 pkg/logger.Config
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults 未设置默认值的 key 不会被 AutomaticEnv 识别，可由环境变量覆盖的 key 都要在这里登记
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "tfms")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic.lifecycle", "tfms.lifecycle")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "tfms")
	v.SetDefault("compliance.restricted_countries", []string{"IRAN", "NORTH KOREA", "SYRIA"})
	v.SetDefault("business.lock_ttl_seconds", 30)
	v.SetDefault("business.lock_retry_millis", 50)
	v.SetDefault("business.lock_max_retries", 40)
	v.SetDefault("business.outbox_max_retry", 5)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.outbox_interval_millis", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "logs/tfms.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
}

// LoadConfig 加载配置文件，环境变量 TFMS_<SECTION>_<KEY> 覆盖文件中的值。
// configPath 为空时只使用默认值和环境变量。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TFMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret 未配置")
	}
	return nil
}
