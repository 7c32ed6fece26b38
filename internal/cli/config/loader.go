package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

const envPrefix = "LEAPCHAT_"

var configNames = []string{"leapchat.yaml", "leapchat.yml"}

// backendURLAliases are unprefixed variables also accepted for backend_url.
var backendURLAliases = []string{"NEXT_PUBLIC_BACKEND_URL", "BACKEND_URL"}

// flagKeys maps flags whose names do not follow the key_name convention.
var flagKeys = map[string]string{
	"store-driver": "store.driver",
	"store-dsn":    "store.dsn",
}

var (
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configIn returns the config file inside dir, if any.
func configIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a leapchat config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// envKey maps an environment variable name to a config key.
// It returns "" for variables that are not configuration.
func envKey(name string) string {
	for _, alias := range backendURLAliases {
		if name == alias {
			return "backend_url"
		}
	}
	if !strings.HasPrefix(name, envPrefix) {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// dotenvValues reads dir/.env into config keys. A missing file yields nothing.
func dotenvValues(dir string) (map[string]any, error) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil, nil //nolint:nilnil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return envValues(vars), nil
}

// envValues maps variables to keys. Prefixed variables win over aliases.
func envValues(vars map[string]string) map[string]any {
	out := make(map[string]any)
	for _, alias := range backendURLAliases {
		if v, ok := vars[alias]; ok && v != "" {
			out["backend_url"] = v
		}
	}
	for name, v := range vars {
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}
		if key := envKey(name); key != "" {
			out[key] = v
		}
	}
	return out
}

// processAliases returns the unprefixed backend URL variables set in the
// process environment.
func processAliases() map[string]any {
	vars := make(map[string]string)
	for _, alias := range backendURLAliases {
		if v, ok := os.LookupEnv(alias); ok {
			vars[alias] = v
		}
	}
	return envValues(vars)
}

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// SetCurrentConfig replaces the loaded configuration. Used for testing.
func SetCurrentConfig(cfg *Config) {
	currentConfig = cfg
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit path, else search upward from CWD
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	projectRoot := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. .env in the project root
	dotenv, err := dotenvValues(projectRoot)
	if err != nil {
		return nil, err
	}
	if len(dotenv) > 0 {
		if err := k.Load(confmap.Provider(dotenv, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// 4. Environment: unprefixed backend URL aliases, then LEAPCHAT_*
	// Transform: LEAPCHAT_GATEWAY__TIMEOUT -> gateway.timeout
	if aliases := processAliases(); len(aliases) > 0 {
		if err := k.Load(confmap.Provider(aliases, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (highest priority), only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	if cfg.Verbose && !flagChanged(flags, "log-level") {
		cfg.LogLevel = "debug"
	}
	cfg.Store.DSN = resolveDSN(cfg.Store.Driver, cfg.Store.DSN, projectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// resolveDSN makes a relative SQLite file path relative to the project root.
func resolveDSN(driver, dsn, root string) string {
	if driver != "sqlite" || dsn == "" || dsn == ":memory:" {
		return dsn
	}
	if strings.HasPrefix(dsn, "file:") || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(root, dsn)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// NewLogger builds the CLI logger writing text records to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
