package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Storage       StorageConfig
	DB            DBConfig
	Redis         RedisConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Root          RootConfig
	Directory     DirectoryConfig
	Repair        RepairConfig
	Mail          MailConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if c.DB.DSN == "" {
			c.DB.DSN = c.DB.SQLitePath
		}
	case StoragePostgres:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	case StorageRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%s=%s requires %s or %s", EnvStorage, StorageRedis, EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("%s must be one of memory, sqlite, postgres, redis (got %q)", EnvStorage, c.Storage.Backend)
	}

	switch c.Directory.Visibility {
	case VisibilityDeferred, VisibilityImmediate:
	default:
		return fmt.Errorf("%s must be deferred or immediate (got %q)", EnvDirectoryVisibility, c.Directory.Visibility)
	}

	if c.Repair.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvRepairInterval)
	}
	if c.Repair.BatchSize <= 0 {
		c.Repair.BatchSize = 50
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"OBC_APP_ENV" default:"dev"`
	Port         string `envconfig:"OBC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"OBC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OBC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Backend string `envconfig:"OBC_STORAGE_BACKEND" default:"memory"`
}

type DBConfig struct {
	DSN         string `envconfig:"OBC_DB_DSN"`
	SQLitePath  string `envconfig:"OBC_DB_SQLITE_PATH" default:"file:openbiocard.db?_busy_timeout=5000"`
	AutoMigrate bool   `envconfig:"OBC_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"OBC_DB_HOST"`
	LegacyPort     int    `envconfig:"OBC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OBC_DB_USER"`
	LegacyPassword string `envconfig:"OBC_DB_PASSWORD"`
	LegacyName     string `envconfig:"OBC_DB_NAME"`
	LegacySSLMode  string `envconfig:"OBC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OBC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OBC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OBC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OBC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OBC_REDIS_URL"`
	Address      string        `envconfig:"OBC_REDIS_ADDR"`
	Password     string        `envconfig:"OBC_REDIS_PASSWORD"`
	DB           int           `envconfig:"OBC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OBC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OBC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OBC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OBC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OBC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OBC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OBC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OBC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OBC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OBC_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	SigninWindow          time.Duration `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNIN_WINDOW" default:"1m"`
	SigninIdentifierLimit int           `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNIN_IDENTIFIER_LIMIT" default:"5"`
	SigninIPLimit         int           `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNIN_IP_LIMIT" default:"20"`
	SignupWindow          time.Duration `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupIdentifierLimit int           `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNUP_IDENTIFIER_LIMIT" default:"3"`
	SignupIPLimit         int           `envconfig:"OBC_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
	ResetWindow           time.Duration `envconfig:"OBC_AUTH_RATE_LIMIT_RESET_WINDOW" default:"10m"`
	ResetIdentifierLimit  int           `envconfig:"OBC_AUTH_RATE_LIMIT_RESET_IDENTIFIER_LIMIT" default:"3"`
	ResetIPLimit          int           `envconfig:"OBC_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
	VerifyWindow          time.Duration `envconfig:"OBC_AUTH_RATE_LIMIT_VERIFY_WINDOW" default:"15m"`
	VerifyIdentifierLimit int           `envconfig:"OBC_AUTH_RATE_LIMIT_VERIFY_IDENTIFIER_LIMIT" default:"5"`
	VerifyIPLimit         int           `envconfig:"OBC_AUTH_RATE_LIMIT_VERIFY_IP_LIMIT" default:"30"`
}

type RootConfig struct {
	Username string `envconfig:"OBC_ROOT_USERNAME" default:"root"`
	Password string `envconfig:"OBC_ROOT_PASSWORD"`
	Token    string `envconfig:"OBC_ROOT_TOKEN"`
}

type DirectoryConfig struct {
	Visibility string `envconfig:"OBC_DIRECTORY_VISIBILITY" default:"deferred"`
	HideRoot   bool   `envconfig:"OBC_DIRECTORY_HIDE_ROOT" default:"true"`
}

// Immediate reports whether unverified accounts are projected at signup.
func (d DirectoryConfig) Immediate() bool {
	return strings.EqualFold(d.Visibility, VisibilityImmediate)
}

type RepairConfig struct {
	Interval  time.Duration `envconfig:"OBC_REPAIR_INTERVAL" default:"1m"`
	BatchSize int           `envconfig:"OBC_REPAIR_BATCH_SIZE" default:"50"`
	Embedded  bool          `envconfig:"OBC_REPAIR_EMBEDDED" default:"true"`
	LockTTL   time.Duration `envconfig:"OBC_REPAIR_LOCK_TTL" default:"5m"`
}

type MailConfig struct {
	APIKey     string        `envconfig:"OBC_MAIL_API_KEY"`
	From       string        `envconfig:"OBC_MAIL_FROM" default:"OpenBioCard <onboarding@resend.dev>"`
	Endpoint   string        `envconfig:"OBC_MAIL_ENDPOINT" default:"https://api.resend.com/emails"`
	Timeout    time.Duration `envconfig:"OBC_MAIL_TIMEOUT" default:"10s"`
	MaxRetries uint64        `envconfig:"OBC_MAIL_MAX_RETRIES" default:"2"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"OBC_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
