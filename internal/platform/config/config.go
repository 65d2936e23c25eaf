package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ProfileFallbackViewer = "viewer"
	ProfileFallbackDeny   = "deny"
)

type Config struct {
	Addr              string `env:"APP_ADDR"            envDefault:":8080"`
	DatabaseURL       string `env:"DATABASE_URL"`
	JWTSecret         string `env:"JWT_SECRET"`
	DataEncryptionKey string `env:"DATA_ENCRYPTION_KEY"`
	Environment       string `env:"APP_ENV"             envDefault:"development"`
	LogLevel          string `env:"LOG_LEVEL"           envDefault:"info"`
	AppName           string `env:"APP_NAME"            envDefault:"TBS CRM"`
	PublicBaseURL     string `env:"PUBLIC_BASE_URL"     envDefault:"http://localhost:8080"`
	FrontendDir       string `env:"FRONTEND_DIR"`

	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD"`
	SeedAdminName     string `env:"SEED_ADMIN_NAME"     envDefault:"Administrator"`
	RunMigrations     bool   `env:"RUN_MIGRATIONS"      envDefault:"true"`
	RunSeed           bool   `env:"RUN_SEED"            envDefault:"true"`

	StorageDir     string `env:"STORAGE_DIR"      envDefault:"storage"`
	StorageBucket  string `env:"STORAGE_BUCKET"   envDefault:"tbs-crm"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	ReportFontPath string `env:"REPORT_FONT_PATH"`

	TokenTTL        time.Duration `env:"TOKEN_TTL"         envDefault:"8h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL"   envDefault:"1h"`
	ProfileFallback string        `env:"PROFILE_FALLBACK"  envDefault:"viewer"`
	ResetURL        string        `env:"PASSWORD_RESET_URL" envDefault:"http://localhost:3000/#/reset-password"`

	TaskStrictWorkflow bool          `env:"TASK_STRICT_WORKFLOW" envDefault:"false"`
	CacheTTL           time.Duration `env:"CACHE_TTL"            envDefault:"30s"`

	EmailFrom    string `env:"EMAIL_FROM"    envDefault:"no-reply@tbs.local"`
	EmailEnabled bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS"  envDefault:"true"`

	MaxBodyBytes       int64 `env:"MAX_BODY_BYTES"        envDefault:"1048576"`
	RateLimitPerMinute int   `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	MetricsEnabled     bool  `env:"METRICS_ENABLED"       envDefault:"true"`

	OTelEnabled     bool   `env:"OTEL_ENABLED"      envDefault:"true"`
	OTelEndpoint    string `env:"OTEL_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"tbscrm"`
}

// Load reads the process environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ProfileFallback = strings.ToLower(strings.TrimSpace(cfg.ProfileFallback))
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for salary encryption")
		}
		if c.RunSeed && c.SeedAdminEmail != "" && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
		}
	}
	switch c.ProfileFallback {
	case ProfileFallbackViewer, ProfileFallbackDeny:
	default:
		return fmt.Errorf("PROFILE_FALLBACK must be %q or %q", ProfileFallbackViewer, ProfileFallbackDeny)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if strings.TrimSpace(c.StorageBucket) == "" || strings.ContainsAny(c.StorageBucket, `/\`) {
		return fmt.Errorf("STORAGE_BUCKET must be a single path segment")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
