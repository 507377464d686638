package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Carts         CartsConfig
	CORS          CORSConfig
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
	if err := cfg.Carts.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GROUPCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GROUPCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GROUPCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROUPCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	env := strings.ToLower(strings.TrimSpace(a.Env))
	return env == AppEnvProd || env == "production"
}

type ServiceConfig struct {
	Kind string `envconfig:"GROUPCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GROUPCART_DB_DSN"`
	Driver string `envconfig:"GROUPCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GROUPCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GROUPCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GROUPCART_DB_USER"`
	LegacyPassword string `envconfig:"GROUPCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GROUPCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GROUPCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GROUPCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GROUPCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GROUPCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GROUPCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GROUPCART_REDIS_ADDR"`
	Password     string        `envconfig:"GROUPCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROUPCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROUPCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROUPCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROUPCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROUPCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GROUPCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GROUPCART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GROUPCART_JWT_ISSUER" default:"groupcart"`
	ExpirationMinutes      int    `envconfig:"GROUPCART_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"GROUPCART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GROUPCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GROUPCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GROUPCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GROUPCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GROUPCART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GROUPCART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GROUPCART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GROUPCART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GROUPCART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GROUPCART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GROUPCART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	// X-Forwarded-For is only honoured when the direct peer is in one of these
	// CIDRs (comma separated, e.g. the load balancer range).
	TrustedProxies []netip.Prefix `envconfig:"GROUPCART_TRUSTED_PROXIES"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GROUPCART_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"GROUPCART_FEATURE_IDEMPOTENCY" default:"true"`
}

// CartsConfig tunes the shared cart lifecycle.
type CartsConfig struct {
	TTL            time.Duration `envconfig:"GROUPCART_CART_TTL" default:"168h"`
	IdempotencyTTL time.Duration `envconfig:"GROUPCART_CART_IDEMPOTENCY_TTL" default:"24h"`
	ExpiryBatch    int           `envconfig:"GROUPCART_CART_EXPIRY_BATCH" default:"200"`
}

func (c CartsConfig) validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCartTTL)
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GROUPCART_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GROUPCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"GROUPCART_PUBSUB_DOMAIN_TOPIC" default:"groupcart-domain-events"`
	DomainSubscription string `envconfig:"GROUPCART_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GROUPCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GROUPCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GROUPCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"GROUPCART_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GROUPCART_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"GROUPCART_CRON_LOCK_TTL" default:"2m"`
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
