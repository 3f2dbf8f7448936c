package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the service configuration, populated from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		// Level has no envDefault: Load resolves an unset level by
		// environment.
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	// Optimization holds the service-level defaults applied to jobs that do
	// not specify their own values.
	Optimization struct {
		Workers       int     `env:"OPT_WORKERS" envDefault:"0"` // 0 = one per CPU
		Strategy      string  `env:"OPT_STRATEGY" envDefault:"best1bin"`
		MaxIterations int     `env:"OPT_MAX_ITERATIONS" envDefault:"1000"`
		PopSize       int     `env:"OPT_POPSIZE" envDefault:"15"`
		Tol           float64 `env:"OPT_TOL" envDefault:"0.01"`
	}
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Unless set explicitly, development runs get debug logging and
	// everything else gets info.
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	return cfg, nil
}
