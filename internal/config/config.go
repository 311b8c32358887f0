package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project" mapstructure:"project"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ProjectConfig locates the transformation project on disk.
type ProjectConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	TargetPath string `yaml:"target_path" mapstructure:"target_path"`
}

// TargetDir returns the directory run artifacts are written to. A relative
// target path is resolved against the project directory.
func (p ProjectConfig) TargetDir() string {
	if filepath.IsAbs(p.TargetPath) {
		return p.TargetPath
	}
	return filepath.Join(p.Dir, p.TargetPath)
}

// RunConfig holds the default build flags.
type RunConfig struct {
	Threads   int  `yaml:"threads" mapstructure:"threads"`
	FailFast  bool `yaml:"fail_fast" mapstructure:"fail_fast"`
	WarnError bool `yaml:"warn_error" mapstructure:"warn_error"`
}

// WarehouseConfig configures the database models are materialized into.
type WarehouseConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRANSFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("project.dir", ".")
	v.SetDefault("project.target_path", "target")
	v.SetDefault("run.threads", 4)
	v.SetDefault("run.fail_fast", false)
	v.SetDefault("run.warn_error", false)
	v.SetDefault("warehouse.driver", "sqlite")
	v.SetDefault("warehouse.dsn", "warehouse.db")
	v.SetDefault("warehouse.max_attempts", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "transform.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks that the settings a command depends on are present and
// sane. mode is one of "parse", "build", "retry" or "serve". retry skips
// run.threads because it inherits threads from the previous run.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Project.Dir == "" {
		errs = append(errs, "project.dir is required")
	}
	if c.Project.TargetPath == "" {
		errs = append(errs, "project.target_path is required")
	}

	switch mode {
	case "build", "retry":
		if mode == "build" && c.Run.Threads < 1 {
			errs = append(errs, "run.threads must be at least 1")
		}
		switch c.Warehouse.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "warehouse.driver must be sqlite or postgres")
		}
		if c.Warehouse.DSN == "" {
			errs = append(errs, "warehouse.dsn is required")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
