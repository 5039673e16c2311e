package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Aptitude  AptitudeConfig  `mapstructure:"aptitude"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"`
	MigrateOnly  bool   `mapstructure:"-"`
	SeedFile     string `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	ExpireTime    time.Duration `mapstructure:"expire_hours"`
	RefreshExpire time.Duration `mapstructure:"refresh_expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AptitudeConfig 能力测试相关参数
type AptitudeConfig struct {
	GraceSeconds       int `mapstructure:"grace_seconds"`        // 超时后仍接受提交的宽限秒数
	SweepIntervalSecs  int `mapstructure:"sweep_interval_seconds"`
	SubmitLockSeconds  int `mapstructure:"submit_lock_seconds"`
	MinPasswordLength  int `mapstructure:"min_password_length"`
	DefaultDurationMin int `mapstructure:"default_duration_minutes"`
}

func (c AptitudeConfig) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

func (c AptitudeConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSecs <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

func (c AptitudeConfig) SubmitLockTTL() time.Duration {
	if c.SubmitLockSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SubmitLockSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	// 配置目录下的 .env 可选，已存在的环境变量优先
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("APTITUDE")
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.refresh_expire_hours", 24*7)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("aptitude.grace_seconds", 30)
	v.SetDefault("aptitude.sweep_interval_seconds", 60)
	v.SetDefault("aptitude.submit_lock_seconds", 30)
	v.SetDefault("aptitude.min_password_length", 6)
	v.SetDefault("aptitude.default_duration_minutes", 60)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.JWT.RefreshExpire = cfg.JWT.RefreshExpire * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}
