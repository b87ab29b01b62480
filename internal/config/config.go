package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all graphd configuration. Every field is read from the
// environment (GRAPHD_* preferred, bare name accepted) with a default.
// Retention thresholds are not configuration; they live in the seeded
// cleanup_rules rows so operators can change them at runtime.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`

	Bind string `envconfig:"BIND" default:"127.0.0.1"`
	Port int    `envconfig:"PORT" default:"8769"`

	// DBPath empty means resolve via store.DefaultDBPath at runtime.
	DBPath    string `envconfig:"DB_PATH"`
	ExportDir string `envconfig:"EXPORT_DIR" default:"./exports"`

	// CleanupSchedule is a cron expression for the periodic retention
	// pass while serving.
	CleanupSchedule string `envconfig:"CLEANUP_SCHEDULE" default:"0 3 * * *"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("GRAPHD", &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
