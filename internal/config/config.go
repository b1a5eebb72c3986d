// Package config loads taskboard settings from defaults, an optional config
// file, TASKBOARD_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TASKBOARD"

// Config holds client (TUI/CLI) settings plus the server group used by `serve`.
type Config struct {
	APIURL          string        `mapstructure:"api_url" validate:"required,url"`
	Token           string        `mapstructure:"token"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`
	MoveTimeout     time.Duration `mapstructure:"move_timeout" validate:"gte=0"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout" validate:"gte=0"`
	ProjectID       string        `mapstructure:"project_id" validate:"max=100"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error"`
	LogFile         string        `mapstructure:"log_file"`
	Format          string        `mapstructure:"format" validate:"required,oneof=json edn"`
	Pretty          bool          `mapstructure:"pretty"`
	StateDir        string        `mapstructure:"state_dir"`

	Server ServerConfig `mapstructure:"server"`
}

type ServerConfig struct {
	Addr      string        `mapstructure:"addr" validate:"required"`
	DBPath    string        `mapstructure:"db_path" validate:"required"`
	RedisURL  string        `mapstructure:"redis_url" validate:"omitempty,url"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	FailRate  float64       `mapstructure:"fail_rate" validate:"gte=0,lte=1"`
	Latency   time.Duration `mapstructure:"latency" validate:"gte=0"`
	Seed      bool          `mapstructure:"seed"`
}

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"api_url":           "api-url",
	"token":             "token",
	"refresh_interval":  "refresh",
	"move_timeout":      "move-timeout",
	"fetch_timeout":     "fetch-timeout",
	"project_id":        "project",
	"log_level":         "log-level",
	"log_file":          "log-file",
	"format":            "format",
	"pretty":            "pretty",
	"server.addr":       "addr",
	"server.db_path":    "db",
	"server.redis_url":  "redis-url",
	"server.cache_ttl":  "cache-ttl",
	"server.jwt_secret": "jwt-secret",
	"server.fail_rate":  "fail-rate",
	"server.latency":    "latency",
	"server.seed":       "seed",
}

// DefaultDir is ~/.taskboard, or ./.taskboard when the home dir is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ".taskboard"
	}
	return filepath.Join(home, ".taskboard")
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("token", "")
	v.SetDefault("refresh_interval", 10*time.Second)
	v.SetDefault("move_timeout", 10*time.Second)
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("project_id", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(dir, "taskboard.log"))
	v.SetDefault("format", "json")
	v.SetDefault("pretty", false)
	v.SetDefault("state_dir", dir)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db_path", filepath.Join(dir, "tasks.sqlite"))
	v.SetDefault("server.redis_url", "")
	v.SetDefault("server.cache_ttl", 30*time.Second)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.fail_rate", 0.0)
	v.SetDefault("server.latency", time.Duration(0))
	v.SetDefault("server.seed", false)
}

// Options controls Load.
type Options struct {
	// ConfigFile is an explicit config path; it must exist when set.
	ConfigFile string
	// Dir is where config.yaml is looked up and where defaults place state.
	// Empty means DefaultDir().
	Dir string
	// Flags are bound per FlagKeys; only flags the user changed override.
	Flags *pflag.FlagSet
}

// Load resolves and validates the configuration.
func Load(opts Options) (*Config, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = DefaultDir()
	}

	v := viper.New()
	setDefaults(v, dir)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range FlagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports the first problem by key.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return InvalidError{Key: fe.Namespace(), Rule: fe.Tag(), Value: fe.Value()}
		}
		return err
	}
	return nil
}

// InvalidError reports a config value that failed validation.
type InvalidError struct {
	Key   string
	Rule  string
	Value any
}

func (e InvalidError) Error() string {
	return fmt.Sprintf("invalid config %s=%v (%s)", e.Key, e.Value, e.Rule)
}
