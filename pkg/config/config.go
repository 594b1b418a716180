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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Search        SearchConfig
	Providers     ProvidersConfig
	Bootstrap     BootstrapConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Search.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEADIA_APP_ENV" required:"true"`
	Port         string `envconfig:"LEADIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LEADIA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LEADIA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LEADIA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"LEADIA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"LEADIA_DB_DSN"`
	Driver string `envconfig:"LEADIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEADIA_DB_HOST"`
	LegacyPort     int    `envconfig:"LEADIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEADIA_DB_USER"`
	LegacyPassword string `envconfig:"LEADIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEADIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEADIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEADIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEADIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEADIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEADIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialect was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"LEADIA_REDIS_URL"`
	Address      string        `envconfig:"LEADIA_REDIS_ADDR"`
	Password     string        `envconfig:"LEADIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEADIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEADIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEADIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEADIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEADIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEADIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret                 string `envconfig:"LEADIA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LEADIA_JWT_ISSUER" default:"lead-ia"`
	ExpirationMinutes      int    `envconfig:"LEADIA_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"LEADIA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LEADIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LEADIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LEADIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LEADIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LEADIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LEADIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LEADIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LEADIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LEADIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LEADIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LEADIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"LEADIA_AUTO_MIGRATE" default:"false"`
	AutoBootstrap bool `envconfig:"LEADIA_AUTO_BOOTSTRAP" default:"true"`
}

type SearchConfig struct {
	ProviderTimeout    time.Duration `envconfig:"LEADIA_SEARCH_PROVIDER_TIMEOUT" default:"2m"`
	Async              bool          `envconfig:"LEADIA_SEARCH_ASYNC" default:"false"`
	StaleAfter         time.Duration `envconfig:"LEADIA_SEARCH_STALE_AFTER" default:"30m"`
	MaxPerPage         int           `envconfig:"LEADIA_SEARCH_MAX_PER_PAGE" default:"200"`
	PermissionCacheTTL time.Duration `envconfig:"LEADIA_PERMISSION_CACHE_TTL" default:"30s"`
}

func (s SearchConfig) validate() error {
	if s.MaxPerPage < 1 {
		return fmt.Errorf("%s must be positive", EnvSearchMaxPerPage)
	}
	if s.ProviderTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvSearchProviderTimeout)
	}
	return nil
}

type ProvidersConfig struct {
	GoogleMapsAPIKey  string `envconfig:"LEADIA_GOOGLE_MAPS_API_KEY"`
	GoogleMapsBaseURL string `envconfig:"LEADIA_GOOGLE_MAPS_BASE_URL"`
	YelpAPIKey        string `envconfig:"LEADIA_YELP_API_KEY"`
	YelpBaseURL       string `envconfig:"LEADIA_YELP_BASE_URL"`
	YelpRatePerSecond int    `envconfig:"LEADIA_YELP_RATE_PER_SECOND" default:"5"`
}

type BootstrapConfig struct {
	SuperadminEmail    string `envconfig:"LEADIA_SUPERADMIN_EMAIL" default:"devops@ideasdevops.com"`
	SuperadminPassword string `envconfig:"LEADIA_SUPERADMIN_PASSWORD"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LEADIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LEADIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LEADIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SearchTopic string `envconfig:"LEADIA_PUBSUB_SEARCH_TOPIC" default:"leadia-search-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"LEADIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"LEADIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"LEADIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"LEADIA_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LEADIA_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"LEADIA_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
