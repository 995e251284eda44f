package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string  `mapstructure:"PORT"`
	Env               string  `mapstructure:"ENV"`
	DatabaseURL       string  `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32   `mapstructure:"DB_MIN_CONNS"`
	DefaultTenant     string  `mapstructure:"DEFAULT_TENANT"`
	JWTSecret         string  `mapstructure:"JWT_SECRET"`
	MigrationsDir     string  `mapstructure:"MIGRATIONS_DIR"`
	ArtifactEndpoint  string  `mapstructure:"ARTIFACT_ENDPOINT"`
	ArtifactAccessKey string  `mapstructure:"ARTIFACT_ACCESS_KEY"`
	ArtifactSecretKey string  `mapstructure:"ARTIFACT_SECRET_KEY"`
	ArtifactBucket    string  `mapstructure:"ARTIFACT_BUCKET"`
	ArtifactUseSSL    bool    `mapstructure:"ARTIFACT_USE_SSL"`
	ExpirySweepHours  float64 `mapstructure:"EXPIRY_SWEEP_HOURS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("ARTIFACT_BUCKET", "screening-artifacts")
	v.SetDefault("EXPIRY_SWEEP_HOURS", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DEFAULT_TENANT")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("ARTIFACT_ENDPOINT")
	v.BindEnv("ARTIFACT_ACCESS_KEY")
	v.BindEnv("ARTIFACT_SECRET_KEY")
	v.BindEnv("ARTIFACT_BUCKET")
	v.BindEnv("ARTIFACT_USE_SSL")
	v.BindEnv("EXPIRY_SWEEP_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be configured so real authentication is enforced, and in
// production an artifact store endpoint is required so uploads have somewhere
// to go.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q; refusing to start without authentication configuration", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}
	if c.IsProduction() && c.ArtifactEndpoint == "" {
		return fmt.Errorf("ARTIFACT_ENDPOINT is required in production")
	}
	if c.ExpirySweepHours <= 0 {
		return fmt.Errorf("EXPIRY_SWEEP_HOURS must be positive, got %v", c.ExpirySweepHours)
	}
	return nil
}
