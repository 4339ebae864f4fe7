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
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Geocode       GeocodeConfig
	Storefront    StorefrontConfig
	Checkout      CheckoutConfig
	CORS          CORSConfig
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
	Env          string `envconfig:"GRMC_APP_ENV" required:"true"`
	Port         string `envconfig:"GRMC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GRMC_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"GRMC_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"GRMC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"GRMC_DB_DSN"`

	Host     string `envconfig:"GRMC_DB_HOST"`
	Port     int    `envconfig:"GRMC_DB_PORT" default:"5432"`
	User     string `envconfig:"GRMC_DB_USER"`
	Password string `envconfig:"GRMC_DB_PASSWORD"`
	Name     string `envconfig:"GRMC_DB_NAME"`
	SSLMode  string `envconfig:"GRMC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRMC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRMC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRMC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRMC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn level. Zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"GRMC_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRMC_REDIS_URL"`
	Address      string        `envconfig:"GRMC_REDIS_ADDR"`
	Password     string        `envconfig:"GRMC_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRMC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRMC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRMC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRMC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRMC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRMC_REDIS_WRITE_TIMEOUT" default:"5s"`
	// StateTTL bounds how long an idle cart, wishlist or auth mirror survives.
	StateTTL time.Duration `envconfig:"GRMC_REDIS_STATE_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GRMC_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GRMC_JWT_ISSUER" default:"grmc"`
	ExpirationMinutes      int    `envconfig:"GRMC_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GRMC_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the lifetime of a minted access token.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GRMC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GRMC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GRMC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GRMC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GRMC_ARGON_KEY_LEN" default:"32"`
}

type AuthConfig struct {
	RequireEmailConfirmation bool   `envconfig:"GRMC_AUTH_REQUIRE_EMAIL_CONFIRMATION" default:"false"`
	MinPasswordLength        int    `envconfig:"GRMC_AUTH_MIN_PASSWORD_LENGTH" default:"6"`
	SessionCookieName        string `envconfig:"GRMC_AUTH_SESSION_COOKIE" default:"grmc_access_token"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GRMC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GRMC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GRMC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GRMC_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GRMC_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GRMC_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GRMC_AUTO_MIGRATE" default:"false"`
	Uploads     bool `envconfig:"GRMC_FEATURE_UPLOADS" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GRMC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GRMC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GRMC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	ProductsBucket string `envconfig:"GRMC_GCS_PRODUCTS_BUCKET" default:"products"`
	ImagesBucket   string `envconfig:"GRMC_GCS_IMAGES_BUCKET" default:"images"`
	MaxUploadMB    int    `envconfig:"GRMC_GCS_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured upload limit into bytes.
func (g GCSConfig) MaxUploadBytes() int64 {
	if g.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(g.MaxUploadMB) << 20
}

type GeocodeConfig struct {
	BaseURL   string        `envconfig:"GRMC_GEOCODE_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `envconfig:"GRMC_GEOCODE_USER_AGENT" default:"grmc-storefront/1.0"`
	Language  string        `envconfig:"GRMC_GEOCODE_LANGUAGE" default:"ar"`
	Timeout   time.Duration `envconfig:"GRMC_GEOCODE_TIMEOUT" default:"5s"`
}

type StorefrontConfig struct {
	// StoragePublicURL is the origin serving public objects, e.g. https://storage.googleapis.com.
	StoragePublicURL string `envconfig:"GRMC_STOREFRONT_STORAGE_PUBLIC_URL" default:"https://storage.googleapis.com"`
	LocalImagePrefix string `envconfig:"GRMC_STOREFRONT_LOCAL_IMAGE_PREFIX" default:"/uploaded_img/"`
	PlaceholderImage string `envconfig:"GRMC_STOREFRONT_PLACEHOLDER_IMAGE" default:"/images/placeholder-product.png"`
	CurrencyLabel    string `envconfig:"GRMC_STOREFRONT_CURRENCY_LABEL" default:"ر.ع"`
}

type CheckoutConfig struct {
	// LegacyTotalColumn keeps writing total_price next to total for older schemas.
	LegacyTotalColumn bool          `envconfig:"GRMC_CHECKOUT_LEGACY_TOTAL_COLUMN" default:"true"`
	StockTimeout      time.Duration `envconfig:"GRMC_CHECKOUT_STOCK_TIMEOUT" default:"10s"`
	IdempotencyTTL    time.Duration `envconfig:"GRMC_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GRMC_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discreteValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if discreteValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
