package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in the command context.
type loggerKey struct{}

// configKey is used to store the loaded config in the command context.
type configKey struct{}

// Package-level config file tracking.
var configFileUsed string

// findConfigFile finds the config file to use.
// Priority: explicit path > iamconv.yaml > iamconv.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("iamconv.yaml"); err == nil {
		return "iamconv.yaml"
	}
	if _, err := os.Stat("iamconv.yml"); err == nil {
		return "iamconv.yml"
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"jobs":       DefaultJobs,
		"state_path": DefaultStateFile,
		"keep_going": false,
		"verbose":    false,
		"wide":       false,
		"sink.type":  DefaultSinkType,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	baseDir := ""
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}

	// 3. Load environment variables (IAMCONV_ prefix)
	// Transform: IAMCONV_STATE_PATH -> state_path
	if err := k.Load(env.Provider("IAMCONV_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "IAMCONV_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --state for brevity, but the config key is state_path
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the config file's directory
	cfg.Index = resolvePathRelativeTo(cfg.Index, baseDir)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, baseDir)
	if cfg.BasePath == "" && cfg.Index != "" {
		cfg.BasePath = filepath.Dir(cfg.Index)
	} else {
		cfg.BasePath = resolvePathRelativeTo(cfg.BasePath, baseDir)
	}

	if cfg.Sink == nil {
		cfg.Sink = &SinkConfig{Type: DefaultSinkType}
	}
	if cfg.Sink.Type == "" {
		cfg.Sink.Type = DefaultSinkType
	}

	// The --output and --wide shorthands feed the sink config.
	if cfg.Output != "" {
		cfg.Sink.Path = cfg.Output
	}
	// File sinks anchor a relative output path next to the config file,
	// like the index and state paths; "-" keeps the CSV sink on stdout.
	if (cfg.Sink.Type == "csv" || cfg.Sink.Type == "duckdb") && cfg.Sink.Path != "-" {
		cfg.Sink.Path = resolvePathRelativeTo(cfg.Sink.Path, baseDir)
	}
	if cfg.Wide {
		cfg.Sink.Wide = true
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}

	// Sink credentials may reference environment variables as ${VAR}.
	cfg.Sink.Password = os.Expand(cfg.Sink.Password, os.Getenv)
	cfg.Sink.Username = os.Expand(cfg.Sink.Username, os.Getenv)
	cfg.Sink.Host = os.Expand(cfg.Sink.Host, os.Getenv)

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Jobs:      DefaultJobs,
		StatePath: DefaultStateFile,
		Sink:      &SinkConfig{Type: DefaultSinkType},
	}
}
