package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongodb"
	StorePostgres = "postgres"
)

type Config struct {
	App       AppConfig
	JWT       JWTConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Github    GithubConfig
	Cascade   CascadeConfig
	Seed      SeedConfig
	Reconcile ReconcileConfig
}

type AppConfig struct {
	AppName                 string
	Environment             string
	HTTPPort                string
	RegistrationEmailDomain string
	// WSAllowedOrigins limits websocket upgrades. Empty allows any origin.
	WSAllowedOrigins []string
}

type JWTConfig struct {
	AccessSecret     string
	RefreshSecret    string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

type StoreConfig struct {
	Driver string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TTL      time.Duration
}

type GithubConfig struct {
	APIBase      string
	ClientID     string
	ClientSecret string
	CacheTTL     time.Duration
}

type CascadeConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

type SeedConfig struct {
	File string
}

type ReconcileConfig struct {
	Workers int
	RPS     float64
}

var (
	errMissingRequiredEnv = errors.New("missing required environment variables")
	errInvalidEnv         = errors.New("invalid environment variables")
)

// DSN builds a postgres connection URL from the discrete DB_* settings.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills variables that are not already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optDefault := func(key, def string) string {
		if v := opt(key); v != "" {
			return v
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		v := opt(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		v := opt(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, key)
			return def
		}
		return n
	}

	cfg.App = AppConfig{
		AppName:                 req("APP_NAME"),
		Environment:             req("APP_ENV"),
		HTTPPort:                req("HTTP_PORT"),
		RegistrationEmailDomain: strings.ToLower(opt("REGISTRATION_EMAIL_DOMAIN")),
		WSAllowedOrigins:        list(opt("WS_ALLOWED_ORIGINS")),
	}

	cfg.JWT = JWTConfig{
		AccessSecret:     req("JWT_ACCESS_SECRET"),
		RefreshSecret:    req("JWT_REFRESH_SECRET"),
		AccessExpiresIn:  dur("JWT_ACCESS_EXPIRES_IN", 15*time.Minute),
		RefreshExpiresIn: dur("JWT_REFRESH_EXPIRES_IN", 168*time.Hour),
	}

	cfg.Store = StoreConfig{Driver: strings.ToLower(optDefault("STORE_DRIVER", StoreMongo))}
	if cfg.Store.Driver != StoreMongo && cfg.Store.Driver != StorePostgres {
		invalid = append(invalid, "STORE_DRIVER")
	}

	cfg.Mongo = MongoConfig{
		URI:      optDefault("MONGO_URI", "mongodb://localhost:27017"),
		Database: optDefault("MONGO_DATABASE", "skill_registry"),
		Timeout:  dur("MONGO_TIMEOUT", 10*time.Second),
	}

	dbField := opt
	if cfg.Store.Driver == StorePostgres {
		dbField = req
	}
	cfg.Database = DatabaseConfig{
		DBHost:     dbField("DB_HOST"),
		DBPort:     dbField("DB_PORT"),
		DBName:     dbField("DB_NAME"),
		DBUser:     dbField("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:        dur("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(integer("DB_POOL_MAX_CONNS", 0)),
		PoolMinConns:          int32(integer("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   dur("DB_POOL_MAX_CONN_LIFETIME", 0),
		PoolMaxConnIdleTime:   dur("DB_POOL_MAX_CONN_IDLE_TIME", 0),
		PoolHealthCheckPeriod: dur("DB_POOL_HEALTH_CHECK_PERIOD", 0),

		MigrationsDir: optDefault("MIGRATIONS_DIR", "migrations"),
	}

	cfg.Redis = RedisConfig{
		Host:     optDefault("REDIS_HOST", "localhost"),
		Port:     optDefault("REDIS_PORT", "6379"),
		Password: opt("REDIS_PASSWORD"),
		TTL:      dur("REDIS_TTL", 10*time.Minute),
	}

	cfg.Github = GithubConfig{
		APIBase:      strings.TrimRight(optDefault("GITHUB_API_BASE", "https://api.github.com"), "/"),
		ClientID:     opt("GITHUB_CLIENT_ID"),
		ClientSecret: opt("GITHUB_CLIENT_SECRET"),
		CacheTTL:     dur("GITHUB_CACHE_TTL", 10*time.Minute),
	}

	cfg.Cascade = CascadeConfig{
		MaxAttempts: integer("CASCADE_MAX_ATTEMPTS", 4),
		Backoff:     dur("CASCADE_BACKOFF", 100*time.Millisecond),
	}
	if cfg.Cascade.MaxAttempts < 1 {
		cfg.Cascade.MaxAttempts = 1
	}

	cfg.Seed = SeedConfig{File: opt("SEED_FILE")}

	rps := 0.0
	if v := opt("RECONCILE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			invalid = append(invalid, "RECONCILE_RPS")
		} else {
			rps = f
		}
	}
	cfg.Reconcile = ReconcileConfig{
		Workers: integer("RECONCILE_WORKERS", 4),
		RPS:     rps,
	}
	if cfg.Reconcile.Workers < 1 {
		cfg.Reconcile.Workers = 1
	}

	if len(missing) > 0 || len(invalid) > 0 {
		var errs []error
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", ")))
		}
		if len(invalid) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", ")))
		}
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

func list(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
