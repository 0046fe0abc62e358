package cliparse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/pflag"
)

type Config struct {
	Port               int           `env:"PORT,default=3318"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	DatabaseType       string        `env:"DATABASE_TYPE,default=sqlite"`
	AdminSecret        string        `env:"ADMIN_SECRET"`
	VoterTokenSecret   string        `env:"VOTER_TOKEN_SECRET"`
	VoterTokenTTL      time.Duration `env:"VOTER_TOKEN_TTL,default=8760h"`
	CookieSecure       bool          `env:"COOKIE_SECURE,default=false"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=120"`
	JellyfinURL        string        `env:"JELLYFIN_URL"`
	JellyfinAPIKey     string        `env:"JELLYFIN_API_KEY"`
	JellyseerrURL      string        `env:"JELLYSEERR_URL"`
	JellyseerrAPIKey   string        `env:"JELLYSEERR_API_KEY"`
	MockMedia          bool          `env:"MOCK_MEDIA,default=false"`
	ExternalTimeout    time.Duration `env:"EXTERNAL_TIMEOUT,default=5s"`
	NATSURL            string        `env:"NATS_URL"`
	SweepSchedule      string        `env:"SWEEP_SCHEDULE,default=@every 1m"`
	LogLevel           slog.Level    `env:"LOG_LEVEL,default=info"`
	LogFormat          string        `env:"LOG_FORMAT,default=text"`
}

// flagEnv maps each command-line flag to the variable it overrides.
var flagEnv = map[string]string{
	"port":          "PORT",
	"database-url":  "DATABASE_URL",
	"database-type": "DATABASE_TYPE",
	"admin-secret":  "ADMIN_SECRET",
	"mock-media":    "MOCK_MEDIA",
	"log-level":     "LOG_LEVEL",
	"log-format":    "LOG_FORMAT",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	// Network config (can be CLI args or env)
	fs.IntP("port", "p", 0, "Server port")
	fs.StringP("database-url", "d", "", "Database URL")
	fs.StringP("database-type", "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.String("admin-secret", "", "Admin secret (prefer env)")

	fs.Bool("mock-media", false, "Serve the built-in mock library instead of Jellyfin/Jellyseerr")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (text or json)")
}

// Load reads .env if present, then the environment, then the flags set on
// fs. Flags win over the environment. fs may be nil.
func Load(ctx context.Context, fs *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(ctx, fs, envconfig.OsLookuper())
}

func load(ctx context.Context, fs *pflag.FlagSet, env envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MultiLookuper(flagLookuper(fs), env),
	})
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func flagLookuper(fs *pflag.FlagSet) envconfig.Lookuper {
	set := map[string]string{}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) {
			if key, ok := flagEnv[f.Name]; ok {
				set[key] = f.Value.String()
			}
		})
	}
	return envconfig.MapLookuper(set)
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	switch c.DatabaseType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_TYPE must be sqlite or postgres, got %q", c.DatabaseType)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	if c.ExternalTimeout <= 0 {
		return errors.New("EXTERNAL_TIMEOUT must be positive")
	}
	return nil
}

// RequireSecrets checks the secrets the HTTP server needs.
func (c Config) RequireSecrets() error {
	// Secrets - MUST be provided
	if c.AdminSecret == "" {
		return errors.New("ADMIN_SECRET required")
	}
	if c.VoterTokenSecret == "" {
		return errors.New("VOTER_TOKEN_SECRET required")
	}
	if c.VoterTokenTTL <= 0 {
		return errors.New("VOTER_TOKEN_TTL must be positive")
	}
	return nil
}
