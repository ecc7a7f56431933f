package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"

	PipelineDirect = "direct"
	PipelineOutbox = "outbox"
)

type Config struct {
	App         AppConfig
	Server      ServerConfig
	Storage     StorageConfig
	MongoDB     MongoDBConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Shortener   ShortenerConfig
	Unlocker    UnlockerConfig
	Auth        AuthConfig
	Google      GoogleConfig
	Security    SecurityConfig
	Visits      VisitsConfig
	Maintenance MaintenanceConfig
	OTel        OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type StorageConfig struct {
	Backend string // mongo or postgres
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type ShortenerConfig struct {
	BaseURL             string
	CodeLength          int
	RedirectStatus      int // 301 or 302
	LinkLifetime        time.Duration
	MaxCodeAttempts     int
	DefaultMonthlyLimit int // 0 disables the quota
}

type UnlockerConfig struct {
	Lifetime    time.Duration
	SessionTTL  time.Duration
	MaxSessions int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	FrontendURL  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type SecurityConfig struct {
	AdminAPIKeys         []string
	CreateRatePerMinute  int
	SessionRatePerMinute int
}

type VisitsConfig struct {
	Pipeline     string // direct or outbox
	TrackTimeout time.Duration
}

type MaintenanceConfig struct {
	GateSweepSpec   string
	OutboxPurgeSpec string
	OutboxRetention time.Duration
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "linkdeck"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(GetEnv("STORAGE_BACKEND", BackendMongo)),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "linkdeck"),
		},
		Postgres: PostgresConfig{
			DSN: GetEnv("DB_DSN", DefaultPostgresDSN()),
		},
		Redis: RedisConfig{
			Enabled:  GetEnvBool("REDIS_ENABLED", false),
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		Shortener: ShortenerConfig{
			BaseURL:             GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			CodeLength:          GetEnvInt("CODE_LENGTH", 8),
			RedirectStatus:      GetEnvInt("REDIRECT_STATUS", 302),
			LinkLifetime:        GetEnvDuration("LINK_LIFETIME", 90*24*time.Hour),
			MaxCodeAttempts:     GetEnvInt("MAX_CODE_ATTEMPTS", 5),
			DefaultMonthlyLimit: GetEnvInt("DEFAULT_MONTHLY_LINK_LIMIT", 50),
		},
		Unlocker: UnlockerConfig{
			Lifetime:    GetEnvDuration("UNLOCKER_LIFETIME", 90*24*time.Hour),
			SessionTTL:  GetEnvDuration("UNLOCKER_SESSION_TTL", 30*time.Minute),
			MaxSessions: GetEnvInt("UNLOCKER_MAX_SESSIONS", 10_000),
		},
		Auth: AuthConfig{
			JWTSecret: GetEnv("JWT_SECRET", "dev-secret"),
			TokenTTL:  GetEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Google: GoogleConfig{
			ClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  GetEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
			FrontendURL:  GetEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Security: SecurityConfig{
			AdminAPIKeys:         SplitCSV(GetEnv("ADMIN_API_KEYS", "")),
			CreateRatePerMinute:  GetEnvInt("CREATE_RATE_PER_MINUTE", 30),
			SessionRatePerMinute: GetEnvInt("GATE_SESSION_RATE_PER_MINUTE", 120),
		},
		Visits: VisitsConfig{
			Pipeline:     strings.ToLower(GetEnv("VISITS_PIPELINE", PipelineDirect)),
			TrackTimeout: GetEnvDuration("VISIT_TRACK_TIMEOUT", 2*time.Second),
		},
		Maintenance: MaintenanceConfig{
			GateSweepSpec:   GetEnv("GATE_SWEEP_SCHEDULE", "*/5 * * * *"),
			OutboxPurgeSpec: GetEnv("OUTBOX_PURGE_SCHEDULE", "0 3 * * *"),
			OutboxRetention: GetEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Shortener.RedirectStatus != 301 && c.Shortener.RedirectStatus != 302 {
		return fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", c.Shortener.RedirectStatus)
	}
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 32 {
		return fmt.Errorf("CODE_LENGTH must be between 4 and 32 (got %d)", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxCodeAttempts < 1 {
		return fmt.Errorf("MAX_CODE_ATTEMPTS must be >= 1 (got %d)", c.Shortener.MaxCodeAttempts)
	}
	if c.Shortener.LinkLifetime <= 0 {
		return fmt.Errorf("LINK_LIFETIME must be > 0")
	}
	if c.Shortener.DefaultMonthlyLimit < 0 {
		return fmt.Errorf("DEFAULT_MONTHLY_LINK_LIMIT must be >= 0 (got %d)", c.Shortener.DefaultMonthlyLimit)
	}
	if c.Unlocker.Lifetime <= 0 || c.Unlocker.SessionTTL <= 0 {
		return fmt.Errorf("UNLOCKER_LIFETIME and UNLOCKER_SESSION_TTL must be > 0")
	}

	switch c.Storage.Backend {
	case BackendMongo, BackendPostgres:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q (got %q)", BackendMongo, BackendPostgres, c.Storage.Backend)
	}

	switch c.Visits.Pipeline {
	case PipelineDirect:
	case PipelineOutbox:
		if c.Storage.Backend != BackendMongo {
			return fmt.Errorf("VISITS_PIPELINE=%s requires STORAGE_BACKEND=%s", PipelineOutbox, BackendMongo)
		}
	default:
		return fmt.Errorf("VISITS_PIPELINE must be %q or %q (got %q)", PipelineDirect, PipelineOutbox, c.Visits.Pipeline)
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "dev-secret" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}

	return nil
}
