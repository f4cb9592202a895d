// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database, voting windows, mail, rate
// limiting, and observability.
//
// A .env file in the working directory is loaded first when present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig selects and tunes the database.
type DBConfig struct {
	Driver       string // DB_DRIVER: sqlite|postgres
	Path         string // DB_PATH (sqlite)
	URL          string // DATABASE_URL (postgres)
	MaxOpenConns int    // DB_MAX_OPEN_CONNS (0 = driver default)
	Tracing      bool   // mirrors OTEL_ENABLED
}

// VotingConfig describes the conference the server votes for.
type VotingConfig struct {
	ConferenceName    string     // CONFERENCE_NAME
	ConductEmail      string     // CONDUCT_EMAIL
	VotingBegin       *time.Time // VOTING_BEGIN (RFC3339)
	VotingEnd         *time.Time // VOTING_END
	ProposalsBegin    *time.Time // PROPOSALS_BEGIN
	ProposalsEnd      *time.Time // PROPOSALS_END
	SelectMaxAttempts int        // SELECT_MAX_ATTEMPTS
	ReportMaxRunes    int        // REPORT_MAX_RUNES
}

// AuthConfig configures request identity.
type AuthConfig struct {
	JWTSecret string // JWT_SECRET; empty trusts X-User-ID (development)
}

// MailConfig configures outbound notifications.
type MailConfig struct {
	SMTPHost     string        // SMTP_HOST; empty logs mails instead of sending
	SMTPPort     int           // SMTP_PORT
	SMTPUsername string        // SMTP_USERNAME
	SMTPPassword string        // SMTP_PASSWORD
	Sender       string        // SMTP_SENDER
	Timeout      time.Duration // MAIL_TIMEOUT
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-cfp-voting")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DB     DBConfig
	Voting VotingConfig
	Auth   AuthConfig
	Mail   MailConfig

	// Rate limiting
	RateRPS         float64 // tokens per second (>= 0)
	RateBurst       int     // bucket size (>= 1)
	RateSelectRPS   float64 // talk selection: each call may reserve a talk
	RateSelectBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	votingBegin, err := gettime("VOTING_BEGIN")
	if err != nil {
		return Config{}, err
	}
	votingEnd, err := gettime("VOTING_END")
	if err != nil {
		return Config{}, err
	}
	proposalsBegin, err := gettime("PROPOSALS_BEGIN")
	if err != nil {
		return Config{}, err
	}
	proposalsEnd, err := gettime("PROPOSALS_END")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DB: DBConfig{
			Driver:       strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:         getenv("DB_PATH", "app.db"),
			URL:          getenv("DATABASE_URL", ""),
			MaxOpenConns: getint("DB_MAX_OPEN_CONNS", 0),
		},
		Voting: VotingConfig{
			ConferenceName:    getenv("CONFERENCE_NAME", "Conference"),
			ConductEmail:      getenv("CONDUCT_EMAIL", ""),
			VotingBegin:       votingBegin,
			VotingEnd:         votingEnd,
			ProposalsBegin:    proposalsBegin,
			ProposalsEnd:      proposalsEnd,
			SelectMaxAttempts: getint("SELECT_MAX_ATTEMPTS", 3),
			ReportMaxRunes:    getint("REPORT_MAX_RUNES", 10000),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
		},
		Mail: MailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getint("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			Sender:       getenv("SMTP_SENDER", "noreply@localhost"),
			Timeout:      getdur("MAIL_TIMEOUT", 10*time.Second),
		},

		// Rate limiting
		RateRPS:         getfloat("RATE_RPS", 5.0),
		RateBurst:       getint("RATE_BURST", 10),
		RateSelectRPS:   getfloat("RATE_SELECT_RPS", 1.0),
		RateSelectBurst: getint("RATE_SELECT_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-cfp-voting"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	cfg.DB.Tracing = cfg.OTEL.Enabled
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

// validate reports the first rule cfg breaks.
func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres":
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	rules := []struct {
		broken bool
		msg    string
	}{
		{blank(cfg.Port), "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0,
			"timeouts must be positive durations"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{cfg.DB.Driver == "sqlite" && blank(cfg.DB.Path), "DB_PATH must not be empty"},
		{cfg.DB.Driver == "postgres" && blank(cfg.DB.URL), "DATABASE_URL must be set when DB_DRIVER=postgres"},
		{cfg.DB.MaxOpenConns < 0, "DB_MAX_OPEN_CONNS must be >= 0"},
		{blank(cfg.Voting.ConferenceName), "CONFERENCE_NAME must not be empty"},
		{cfg.Voting.SelectMaxAttempts < 1, "SELECT_MAX_ATTEMPTS must be >= 1"},
		{cfg.Voting.ReportMaxRunes < 1, "REPORT_MAX_RUNES must be >= 1"},
		{cfg.Mail.SMTPPort <= 0 || cfg.Mail.Timeout <= 0, "SMTP_PORT and MAIL_TIMEOUT must be positive"},
		{cfg.RateRPS < 0, "RATE_RPS must be >= 0"},
		{cfg.RateBurst < 1, "RATE_BURST must be >= 1"},
		{cfg.RateSelectRPS < 0 || cfg.RateSelectBurst < 1, "RATE_SELECT_RPS must be >= 0 and RATE_SELECT_BURST >= 1"},
		{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{cfg.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, r := range rules {
		if r.broken {
			return errors.New(r.msg)
		}
	}
	if err := checkWindow("VOTING", cfg.Voting.VotingBegin, cfg.Voting.VotingEnd); err != nil {
		return err
	}
	return checkWindow("PROPOSALS", cfg.Voting.ProposalsBegin, cfg.Voting.ProposalsEnd)
}

// checkWindow rejects half-set and inverted BEGIN/END pairs.
func checkWindow(prefix string, begin, end *time.Time) error {
	if (begin == nil) != (end == nil) {
		return fmt.Errorf("%s_BEGIN and %s_END must be set together", prefix, prefix)
	}
	if begin != nil && end.Before(*begin) {
		return fmt.Errorf("%s_END must not be before %s_BEGIN", prefix, prefix)
	}
	return nil
}

// ---- helpers ----

// gettime parses an optional RFC3339 instant. Unlike the other helpers a
// malformed value is an error: silently dropping a window bound would open
// or close voting by accident.
func gettime(k string) (*time.Time, error) {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC3339: %w", k, err)
	}
	t = t.UTC()
	return &t, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
