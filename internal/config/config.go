package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name          string `mapstructure:"name"`
	Environment   string `mapstructure:"environment"`
	PublicURL     string `mapstructure:"public_url"`
	APIURL        string `mapstructure:"api_url"`
	MailViewerURL string `mapstructure:"mail_viewer_url"`
	Timezone      string `mapstructure:"timezone"`
}

func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Name         string        `mapstructure:"name"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
}

type StorageConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Region         string `mapstructure:"region"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	AudioMaxBytes  int64  `mapstructure:"audio_max_bytes"`
	ReportMaxBytes int64  `mapstructure:"report_max_bytes"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type OAuthConfig struct {
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`
	StateSecret        string `mapstructure:"state_secret"`
}

type WorkerConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	HealthPort    int           `mapstructure:"health_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// secrets are read with envconfig after the file so deploys never need them on disk.
type secrets struct {
	JWTSecret          string `envconfig:"JWT_SECRET"`
	DatabasePassword   string `envconfig:"DB_PASSWORD"`
	RedisURL           string `envconfig:"REDIS_URL"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
	StorageAccessKey   string `envconfig:"STORAGE_ACCESS_KEY"`
	StorageSecretKey   string `envconfig:"STORAGE_SECRET_KEY"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	OAuthStateSecret   string `envconfig:"OAUTH_STATE_SECRET"`
}

const envPrefix = "PRACTICE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "practice-api")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.public_url", "http://localhost:5173")
	v.SetDefault("app.api_url", "http://localhost:8080")
	v.SetDefault("app.mail_viewer_url", "http://localhost:54324")
	v.SetDefault("app.timezone", "America/Sao_Paulo")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 60<<20)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.idempotency_ttl", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "practice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "practice-api")
	v.SetDefault("jwt.access_expiry", time.Hour)
	v.SetDefault("jwt.refresh_expiry", 7*24*time.Hour)

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.audio_max_bytes", 50<<20)
	v.SetDefault("storage.report_max_bytes", 10<<20)

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 54325)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@practice.local")
	v.SetDefault("smtp.from_name", "Consultório")

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.google_redirect_url", "http://localhost:8080/api/v1/auth/oauth/google/callback")
	v.SetDefault("oauth.state_secret", "")

	v.SetDefault("worker.batch_size", 50)
	v.SetDefault("worker.poll_interval", 2*time.Second)
	v.SetDefault("worker.retry_attempts", 5)
	v.SetDefault("worker.retry_delay", 30*time.Second)
	v.SetDefault("worker.health_port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads .env (optional), then config.yaml from paths (default "." and
// "./config"), then PRACTICE_* environment variables.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applySecrets(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applySecrets(cfg *Config) error {
	var s secrets
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return fmt.Errorf("failed to read secrets from environment: %w", err)
	}

	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	override(&cfg.JWT.Secret, s.JWTSecret)
	override(&cfg.Database.Password, s.DatabasePassword)
	override(&cfg.Redis.URL, s.RedisURL)
	override(&cfg.SMTP.Password, s.SMTPPassword)
	override(&cfg.Storage.AccessKey, s.StorageAccessKey)
	override(&cfg.Storage.SecretKey, s.StorageSecretKey)
	override(&cfg.OAuth.GoogleClientSecret, s.GoogleClientSecret)
	override(&cfg.OAuth.StateSecret, s.OAuthStateSecret)
	return nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (set PRACTICE_JWT_SECRET)")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Worker.BatchSize <= 0 || c.Worker.PollInterval <= 0 {
		return errors.New("worker batch_size and poll_interval must be positive")
	}
	if c.OAuth.StateSecret == "" {
		c.OAuth.StateSecret = c.JWT.Secret
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid app timezone %q: %w", c.App.Timezone, err)
	}
	return nil
}

// Location returns the practice timezone; Validate has already checked it.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
