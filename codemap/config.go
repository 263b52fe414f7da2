package codemap

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/shiwano/errbridge"
)

// Config is the fixed code layout of a Registry.
//
// Mapped codes are taken from [MinCode, MaxCode]. If MinCode is greater
// than MaxCode the range wraps around the int32 boundary and covers
// [MinCode, MaxInt32] and [MinInt32, MaxCode]. The three sentinel codes
// must differ from each other and lie outside the range.
type Config struct {
	MinCode         int32 `mapstructure:"min_code" yaml:"min_code"`
	MaxCode         int32 `mapstructure:"max_code" yaml:"max_code"`
	NoErrorCode     int32 `mapstructure:"no_error_code" yaml:"no_error_code"`
	OutOfMemoryCode int32 `mapstructure:"out_of_memory_code" yaml:"out_of_memory_code"`
	MapFailureCode  int32 `mapstructure:"map_failure_code" yaml:"map_failure_code"`
}

// DefaultConfig returns a layout for APIs that report success as 0 and
// failures as small positive integers.
func DefaultConfig() Config {
	return Config{
		MinCode:         1,
		MaxCode:         32767,
		NoErrorCode:     0,
		OutOfMemoryCode: -1,
		MapFailureCode:  -2,
	}
}

// Validate checks the sentinel codes against each other and the range.
// The returned error matches errbridge.ErrMapInvalidConfig.
func (c Config) Validate() error {
	sentinels := []struct {
		name string
		code int32
	}{
		{"no-error", c.NoErrorCode},
		{"out-of-memory", c.OutOfMemoryCode},
		{"map-failure", c.MapFailureCode},
	}
	for i, s := range sentinels {
		if c.InRange(s.code) {
			return fmt.Errorf("%w: %s code %d is inside mapped range [%d, %d]",
				errbridge.ErrMapInvalidConfig, s.name, s.code, c.MinCode, c.MaxCode)
		}
		for _, o := range sentinels[i+1:] {
			if s.code == o.code {
				return fmt.Errorf("%w: %s and %s codes are both %d",
					errbridge.ErrMapInvalidConfig, s.name, o.name, s.code)
			}
		}
	}
	return nil
}

// InRange reports whether code is in the mapped range.
func (c Config) InRange(code int32) bool {
	if c.MinCode <= c.MaxCode {
		return code >= c.MinCode && code <= c.MaxCode
	}
	return code >= c.MinCode || code <= c.MaxCode
}

// RangeSize returns the number of codes in the mapped range.
func (c Config) RangeSize() uint64 {
	if c.MinCode <= c.MaxCode {
		return uint64(int64(c.MaxCode)-int64(c.MinCode)) + 1
	}
	return uint64(math.MaxInt32-int64(c.MinCode)) + 1 + uint64(int64(c.MaxCode)-math.MinInt32) + 1
}

func (c Config) next(code int32) int32 {
	switch code {
	case c.MaxCode:
		return c.MinCode
	case math.MaxInt32:
		return math.MinInt32
	default:
		return code + 1
	}
}

// LoadOptions controls LoadConfig.
type LoadOptions struct {
	// ConfigPath is the directory searched for the config file. Default "./configs".
	ConfigPath string
	// ConfigName is the file name without extension. Default "codemap".
	ConfigName string
	// EnvFile is a dotenv file loaded before reading the environment.
	// Default is $ENV_FILE, then ".env". A missing file is ignored.
	EnvFile string
	// EnvPrefix prefixes environment overrides, e.g. ERRBRIDGE_MIN_CODE.
	// Default "ERRBRIDGE".
	EnvPrefix string
	// AllowNoConfig accepts a missing config file and uses defaults plus
	// environment overrides.
	AllowNoConfig bool
}

// LoadConfig reads a Config from a YAML file and the environment, starting
// from DefaultConfig, and validates it.
func LoadConfig(opts ...LoadOptions) (Config, error) {
	opt := LoadOptions{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.ConfigPath == "" {
		opt.ConfigPath = "./configs"
	}
	if opt.ConfigName == "" {
		opt.ConfigName = "codemap"
	}
	if opt.EnvPrefix == "" {
		opt.EnvPrefix = "ERRBRIDGE"
	}

	envFile := opt.EnvFile
	if envFile == "" {
		envFile = os.Getenv("ENV_FILE")
	}
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s failed: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigName(opt.ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(opt.ConfigPath)

	def := DefaultConfig()
	v.SetDefault("min_code", def.MinCode)
	v.SetDefault("max_code", def.MaxCode)
	v.SetDefault("no_error_code", def.NoErrorCode)
	v.SetDefault("out_of_memory_code", def.OutOfMemoryCode)
	v.SetDefault("map_failure_code", def.MapFailureCode)

	v.SetEnvPrefix(opt.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || !opt.AllowNoConfig {
			return Config{}, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
