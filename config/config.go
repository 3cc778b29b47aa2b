package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Cloudinary CloudinaryConfig
	Mailer     MailerConfig
	Reports    ReportsConfig
	Cron       CronConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	BaseURL      string // public URL used in emailed links
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// MailerConfig holds the transactional email provider credentials.
// WebhookSecret signs delivery-status callbacks; empty disables verification.
type MailerConfig struct {
	BaseURL       string
	APIKey        string
	From          string
	WebhookSecret string
}

// ReportsConfig controls generated report storage. Reports live in one bucket
// and expire TTL after generation.
type ReportsConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	TTL       time.Duration
}

// CronConfig guards the scheduler trigger endpoints and sets retention defaults.
type CronConfig struct {
	Secret        string // bearer token for /cron endpoints; empty means misconfigured
	RetentionDays int    // queued notification retention in days
	DigestHourUTC int    // hour at which daily/weekly digests go out
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8084"),
			Env:          getenv("APP_ENV", "development"),
			BaseURL:      getenv("APP_BASE_URL", "http://localhost:8084"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "sitework:sitework@tcp(localhost:3306)/sitework?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getenv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getenv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "sitework",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", "http://localhost:8084/api/v1/auth/google/callback"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		Mailer: MailerConfig{
			BaseURL:       getenv("MAILER_BASE_URL", "https://api.mailrelay.dev"),
			APIKey:        os.Getenv("MAILER_API_KEY"),
			From:          getenv("MAILER_FROM", "Sitework <no-reply@sitework.app>"),
			WebhookSecret: os.Getenv("MAILER_WEBHOOK_SECRET"),
		},
		Reports: ReportsConfig{
			Endpoint:  getenv("REPORTS_STORE_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("REPORTS_STORE_ACCESS_KEY"),
			SecretKey: os.Getenv("REPORTS_STORE_SECRET_KEY"),
			Bucket:    getenv("REPORTS_STORE_BUCKET", "sitework-reports"),
			UseSSL:    os.Getenv("REPORTS_STORE_SSL") == "true",
			TTL:       24 * time.Hour,
		},
		Cron: CronConfig{
			Secret:        os.Getenv("CRON_SECRET"),
			RetentionDays: getenvInt("NOTIFICATION_RETENTION_DAYS", 90),
			DigestHourUTC: 8,
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
