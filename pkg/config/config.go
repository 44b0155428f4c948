package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACCORD_APP_ENV" required:"true"`
	Port         string `envconfig:"ACCORD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ACCORD_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ACCORD_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ACCORD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ACCORD_DB_DSN"`

	Host     string `envconfig:"ACCORD_DB_HOST"`
	Port     int    `envconfig:"ACCORD_DB_PORT" default:"5432"`
	User     string `envconfig:"ACCORD_DB_USER"`
	Password string `envconfig:"ACCORD_DB_PASSWORD"`
	Name     string `envconfig:"ACCORD_DB_NAME"`
	SSLMode  string `envconfig:"ACCORD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACCORD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACCORD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACCORD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACCORD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACCORD_REDIS_URL"`
	Address      string        `envconfig:"ACCORD_REDIS_ADDR"`
	Password     string        `envconfig:"ACCORD_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACCORD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACCORD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACCORD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACCORD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACCORD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACCORD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	CookieName   string        `envconfig:"ACCORD_SESSION_COOKIE_NAME" default:"accord_session"`
	TTL          time.Duration `envconfig:"ACCORD_SESSION_TTL" default:"720h"`
	CookieSecure bool          `envconfig:"ACCORD_SESSION_COOKIE_SECURE" default:"false"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ACCORD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ACCORD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ACCORD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ACCORD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ACCORD_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACCORD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"ACCORD_DB_HOST": db.Host,
		"ACCORD_DB_USER": db.User,
		"ACCORD_DB_NAME": db.Name,
	}
	for _, env := range []string{"ACCORD_DB_HOST", "ACCORD_DB_USER", "ACCORD_DB_NAME"} {
		if required[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either ACCORD_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
