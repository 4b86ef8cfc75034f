package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 存储驱动
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// tableNamePattern DATABASE_TABLE 只接受普通 SQL 标识符
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string         `json:"log_level" yaml:"log_level"`
	LogFormat string         `json:"log_format" yaml:"log_format"`
	Server    ServerConfig   `json:"server" yaml:"server"`
	Storage   StorageConfig  `json:"storage" yaml:"storage"`
	Database  DatabaseConfig `json:"database" yaml:"database"`
	Redis     RedisConfig    `json:"redis" yaml:"redis"`
	Auth      AuthConfig     `json:"auth" yaml:"auth"`
	Session   SessionConfig  `json:"session" yaml:"session"`
}

type ServerConfig struct {
	Host                string   `json:"host" yaml:"host"`
	Port                int      `json:"port" yaml:"port"`
	ReadTimeoutSeconds  int      `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	AllowedOrigins      []string `json:"allowed_origins" yaml:"allowed_origins"`
}

type StorageConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	FilePath string `json:"file_path" yaml:"file_path"`
	Key      string `json:"key" yaml:"key"`
}

type DatabaseConfig struct {
	URL                    string `json:"url" yaml:"url"`
	Table                  string `json:"table" yaml:"table"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
}

type RedisConfig struct {
	URL       string `json:"url" yaml:"url"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer string `json:"jwt_issuer" yaml:"jwt_issuer"`
}

type SessionConfig struct {
	IdleTimeoutSeconds   int `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	SweepIntervalSeconds int `json:"sweep_interval_seconds" yaml:"sweep_interval_seconds"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
			AllowedOrigins:      []string{"http://localhost:3000"},
		},
		Storage: StorageConfig{
			Driver:   StorageFile,
			FilePath: "data/storage.json",
			Key:      "flow",
		},
		Database: DatabaseConfig{
			Table:                  "flow_kv",
			MaxOpenConns:           5,
			MaxIdleConns:           2,
			ConnMaxLifetimeSeconds: 300,
		},
		Redis: RedisConfig{
			KeyPrefix: "flowbuilder:",
		},
		Session: SessionConfig{
			IdleTimeoutSeconds:   3600,
			SweepIntervalSeconds: 60,
		},
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定，.yaml/.yml 按 YAML 解析，其余按 JSON。
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // .env 非必需

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)
	applyList("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	applyString("STORAGE_DRIVER", &c.Storage.Driver)
	applyString("STORAGE_FILE", &c.Storage.FilePath)
	applyString("FLOW_STORAGE_KEY", &c.Storage.Key)

	applyString("DATABASE_URL", &c.Database.URL)
	applyString("DATABASE_TABLE", &c.Database.Table)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("REDIS_URL", &c.Redis.URL)
	applyString("REDIS_KEY_PREFIX", &c.Redis.KeyPrefix)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyInt("SESSION_IDLE_TIMEOUT", &c.Session.IdleTimeoutSeconds)
	applyInt("SESSION_SWEEP_INTERVAL", &c.Session.SweepIntervalSeconds)
}

func (c *AppConfig) normalize() {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "flow"
	}
	if c.Session.SweepIntervalSeconds <= 0 {
		c.Session.SweepIntervalSeconds = 60
	}
}

// Validate 按存储驱动检查必填项。
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case StorageFile:
		if strings.TrimSpace(c.Storage.FilePath) == "" {
			return fmt.Errorf("STORAGE_FILE is required for the file driver")
		}
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.Redis.URL) == "" {
			return fmt.Errorf("REDIS_URL is required for the redis driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		if c.Database.Table != "" && !tableNamePattern.MatchString(c.Database.Table) {
			return fmt.Errorf("invalid DATABASE_TABLE %q", c.Database.Table)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyList(key string, target *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*target = out
}
