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
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Sendgrid      SendgridConfig
	Uploads       UploadsConfig
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
	Env          string `envconfig:"PROMPTMART_APP_ENV" required:"true"`
	Port         string `envconfig:"PROMPTMART_APP_PORT" required:"true"`
	ClientOrigin string `envconfig:"PROMPTMART_CLIENT_ORIGIN" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"PROMPTMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROMPTMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PROMPTMART_DB_DSN"`
	Driver string `envconfig:"PROMPTMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROMPTMART_DB_HOST"`
	LegacyPort     int    `envconfig:"PROMPTMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROMPTMART_DB_USER"`
	LegacyPassword string `envconfig:"PROMPTMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROMPTMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROMPTMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROMPTMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROMPTMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROMPTMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROMPTMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROMPTMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROMPTMART_REDIS_ADDR"`
	Password     string        `envconfig:"PROMPTMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROMPTMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROMPTMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROMPTMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROMPTMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROMPTMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROMPTMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PROMPTMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PROMPTMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PROMPTMART_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// Expiration returns the configured session token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PROMPTMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PROMPTMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PROMPTMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PROMPTMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PROMPTMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PROMPTMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PROMPTMART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PROMPTMART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PROMPTMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PROMPTMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"PROMPTMART_GCS_BUCKET_NAME" required:"true"`
}

type PubSubConfig struct {
	ImageDeletionTopic        string `envconfig:"PROMPTMART_PUBSUB_IMAGE_DELETION_TOPIC" default:"pm-image-deletions"`
	ImageDeletionSubscription string `envconfig:"PROMPTMART_PUBSUB_IMAGE_DELETION_SUBSCRIPTION" default:"pm-image-deletions-worker"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PROMPTMART_SENDGRID_API_KEY" required:"true"`
	DefaultFrom string `envconfig:"PROMPTMART_SENDGRID_FROM_EMAIL" required:"true"`
}

type UploadsConfig struct {
	MaxImageMB     int `envconfig:"PROMPTMART_MAX_IMAGE_MB" default:"10"`
	MaxPromptFiles int `envconfig:"PROMPTMART_MAX_PROMPT_FILES" default:"10"`
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
