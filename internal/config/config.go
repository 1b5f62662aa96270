package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskboard/internal/utils"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported values for DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Redis    RedisConfig    `yaml:"redis" toml:"redis"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Static   StaticConfig   `yaml:"static" toml:"static"`
}

type ServerConfig struct {
	Host           string        `yaml:"host" toml:"host"`
	Port           int           `yaml:"port" toml:"port"`
	Environment    string        `yaml:"environment" toml:"environment"`
	ReadTimeout    time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" toml:"driver"`
	DSN             string        `yaml:"dsn" toml:"dsn"`
	Host            string        `yaml:"host" toml:"host"`
	Port            int           `yaml:"port" toml:"port"`
	User            string        `yaml:"user" toml:"user"`
	Password        string        `yaml:"password" toml:"password"`
	Name            string        `yaml:"name" toml:"name"`
	SSLMode         string        `yaml:"sslmode" toml:"sslmode"`
	MongoURI        string        `yaml:"mongo_uri" toml:"mongo_uri"`
	MaxOpenConns    int           `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" toml:"conn_max_idle_time"`
	ConnectRetries  int           `yaml:"connect_retries" toml:"connect_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay" toml:"retry_delay"`
}

type RedisConfig struct {
	Host         string        `yaml:"host" toml:"host"`
	Port         int           `yaml:"port" toml:"port"`
	Password     string        `yaml:"password" toml:"password"`
	DB           int           `yaml:"db" toml:"db"`
	PoolSize     int           `yaml:"pool_size" toml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" toml:"min_idle_conns"`
	MaxRetries   int           `yaml:"max_retries" toml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

// CacheConfig controls the stats cache. Redis is only dialed when the cache
// is enabled and a redis host is configured.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled" toml:"enabled"`
	UseRedis    bool          `yaml:"use_redis" toml:"use_redis"`
	StatsTTL    time.Duration `yaml:"stats_ttl" toml:"stats_ttl"`
	WarmWorkers int           `yaml:"warm_workers" toml:"warm_workers"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type StaticConfig struct {
	Dir   string `yaml:"dir" toml:"dir"`
	Index string `yaml:"index" toml:"index"`
}

// Default returns the configuration used when neither a file nor the
// environment supply a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			Environment:    "development",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:          DriverSQLite,
			DSN:             "taskboard.db",
			Host:            "localhost",
			Port:            5432,
			User:            "taskboard",
			Name:            "taskboard",
			SSLMode:         "disable",
			MongoURI:        "mongodb://localhost:27017",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
			ConnectRetries:  3,
			RetryDelay:      2 * time.Second,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:     false,
			UseRedis:    false,
			StatsTTL:    time.Minute,
			WarmWorkers: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Static: StaticConfig{
			Index: "index.html",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional file at
// path (YAML or TOML by extension) and then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = utils.GetEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = utils.GetEnvAsInt("SERVER_PORT", utils.GetEnvAsInt("PORT", cfg.Server.Port))
	cfg.Server.Environment = utils.GetEnv("APP_ENV", cfg.Server.Environment)
	cfg.Server.ReadTimeout = utils.GetEnvAsDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = utils.GetEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = utils.GetEnvAsDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	if origins := utils.GetEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	cfg.Database.Driver = utils.GetEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = utils.GetEnv("DB_DSN", cfg.Database.DSN)
	cfg.Database.Host = utils.GetEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = utils.GetEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = utils.GetEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = utils.GetEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = utils.GetEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = utils.GetEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MongoURI = utils.GetEnv("MONGO_URI", cfg.Database.MongoURI)
	cfg.Database.MaxOpenConns = utils.GetEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = utils.GetEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = utils.GetEnvAsDuration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.ConnMaxIdleTime = utils.GetEnvAsDuration("DB_CONN_MAX_IDLE_TIME", cfg.Database.ConnMaxIdleTime)

	cfg.Redis.Host = utils.GetEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = utils.GetEnvAsInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = utils.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = utils.GetEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = utils.GetEnvAsInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Cache.Enabled = utils.GetEnvAsBool("CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.UseRedis = utils.GetEnvAsBool("CACHE_USE_REDIS", cfg.Cache.UseRedis)
	cfg.Cache.StatsTTL = utils.GetEnvAsDuration("CACHE_STATS_TTL", cfg.Cache.StatsTTL)
	cfg.Cache.WarmWorkers = utils.GetEnvAsInt("CACHE_WARM_WORKERS", cfg.Cache.WarmWorkers)

	cfg.Log.Level = utils.GetEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = utils.GetEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Static.Dir = utils.GetEnv("STATIC_DIR", cfg.Static.Dir)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Cache.StatsTTL <= 0 {
		return fmt.Errorf("cache stats_ttl must be positive, got %s", c.Cache.StatsTTL)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// PostgresDSN returns DSN verbatim when it looks like a postgres connection
// string and builds one from the discrete fields otherwise.
func (d *DatabaseConfig) PostgresDSN() string {
	if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") || strings.Contains(d.DSN, "host=") {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
