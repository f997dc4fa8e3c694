package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// View store drivers.
const (
	ViewStoreMemory = "memory"
	ViewStoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend BackendConfig
	Roster  RosterConfig
	Session SessionConfig
	Views   ViewStoreConfig
	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Metrics MetricsConfig
	Export  ExportConfig
}

// BackendConfig points the console at the remote roster API.
type BackendConfig struct {
	BaseURL     string
	AccountPath string
	StudentPath string
	Timeout     time.Duration
}

// RosterConfig tunes the list view.
type RosterConfig struct {
	PageSize         int
	DefaultCreatedBy string
}

// SessionConfig configures the credential cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// ViewStoreConfig selects where per-session view state lives.
type ViewStoreConfig struct {
	Driver string
	TTL    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// ExportConfig toggles roster page exports.
type ExportConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL:     strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		AccountPath: v.GetString("BACKEND_ACCOUNT_PATH"),
		StudentPath: v.GetString("BACKEND_STUDENT_PATH"),
		Timeout:     parseDuration(v.GetString("BACKEND_TIMEOUT"), 0),
	}

	pageSize := v.GetInt("ROSTER_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 5
	}
	cfg.Roster = RosterConfig{
		PageSize:         pageSize,
		DefaultCreatedBy: v.GetString("ROSTER_DEFAULT_CREATED_BY"),
	}

	cfg.Session = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		MaxAge:     parseDuration(v.GetString("SESSION_MAX_AGE"), 7*24*time.Hour),
		Secure:     v.GetBool("SESSION_SECURE"),
	}

	driver := strings.ToLower(v.GetString("VIEW_STORE"))
	if driver != ViewStoreRedis {
		driver = ViewStoreMemory
	}
	cfg.Views = ViewStoreConfig{
		Driver: driver,
		TTL:    parseDuration(v.GetString("VIEW_STATE_TTL"), 12*time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}
	cfg.Export = ExportConfig{Enabled: v.GetBool("ENABLE_EXPORT")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "https://ultatel.runasp.net")
	v.SetDefault("BACKEND_ACCOUNT_PATH", "/api/account")
	v.SetDefault("BACKEND_STUDENT_PATH", "/api/student")
	v.SetDefault("BACKEND_TIMEOUT", "")

	v.SetDefault("ROSTER_PAGE_SIZE", 5)
	v.SetDefault("ROSTER_DEFAULT_CREATED_BY", "Admin")

	v.SetDefault("SESSION_SECRET", "dev_session_secret_change_me_32b")
	v.SetDefault("SESSION_COOKIE_NAME", "roster_session")
	v.SetDefault("SESSION_MAX_AGE", "168h")
	v.SetDefault("SESSION_SECURE", false)

	v.SetDefault("VIEW_STORE", ViewStoreMemory)
	v.SetDefault("VIEW_STATE_TTL", "12h")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_EXPORT", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
