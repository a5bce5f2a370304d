// Package config loads the process configuration from the environment.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT      JWTConfig
	Password PasswordConfig
	Store    StoreConfig
	Mongo    MongoConfig
	SQL      SQLConfig
	Redis    RedisConfig
	Audit    AuditConfig

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS, default=*"`
}

type JWTConfig struct {
	SecretKey            string `env:"JWT_SECRET_KEY"`
	Algorithm            string `env:"JWT_ALGORITHM,                   default=HS256"`
	AccessTokenTTLMinute int    `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`
}

// AccessTokenTTL returns the configured token lifetime.
func (c JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinute) * time.Minute
}

type PasswordConfig struct {
	MemoryKB    uint32 `env:"PASSWORD_ARGON2_MEMORY_KB,   default=65536"`
	Iterations  uint32 `env:"PASSWORD_ARGON2_ITERATIONS,  default=3"`
	Parallelism uint8  `env:"PASSWORD_ARGON2_PARALLELISM, default=4"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=memory"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=credential_service"`
}

type SQLConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH, default=credentials.db"`
}

type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR,            default=localhost:6379"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB,              default=0"`
	ProfileCache    bool          `env:"PROFILE_CACHE_ENABLED, default=false"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL,     default=5m"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration through lookuper (envconfig.OsLookuper() in
// production) and validates it. Every failure wraps domain.ErrConfiguration.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return fmt.Errorf("%w: JWT_SECRET_KEY is required", domain.ErrConfiguration)
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("%w: JWT_ALGORITHM %q is not supported", domain.ErrConfiguration, c.JWT.Algorithm)
	}
	if c.JWT.AccessTokenTTLMinute <= 0 {
		return fmt.Errorf("%w: JWT_ACCESS_TOKEN_EXPIRE_MINUTES must be positive", domain.ErrConfiguration)
	}

	switch c.Store.Driver {
	case StoreMemory, StoreMongo, StoreSQLite:
	case StorePostgres:
		if c.SQL.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: STORE_DRIVER %q is not supported", domain.ErrConfiguration, c.Store.Driver)
	}

	if c.Audit.Workers <= 0 {
		return fmt.Errorf("%w: AUDIT_WORKERS must be positive", domain.ErrConfiguration)
	}
	return nil
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}
