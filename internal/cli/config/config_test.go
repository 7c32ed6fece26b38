package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// clearEnv unsets every variable the loader reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if envKey(name) != "" {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	t.Cleanup(ResetConfig)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("backend-url", "", "")
	fs.String("log-level", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.String("store-driver", "", "")
	fs.String("store-dsn", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.BackendURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Gateway.QuestionsTTL)
	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileSearchedUpward(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "leapchat.yaml"), `
backend_url: http://file:8000
gateway:
  timeout: 15s
  questions_ttl: 0s
ui:
  port: 9000
  auto_open: false
store:
  driver: sqlite
  dsn: data/chat.db
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	chdir(t, nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://file:8000", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.Zero(t, cfg.Gateway.QuestionsTTL)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.False(t, cfg.UI.AutoOpen)
	assert.True(t, cfg.UI.Watch, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "data", "chat.db"), cfg.Store.DSN)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yml")
	writeFile(t, path, "backend_url: http://explicit\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://explicit", cfg.BackendURL)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		denv  string
		env   map[string]string
		flags []string
		want  string
	}{
		{
			name: "file only",
			file: "backend_url: http://file\n",
			want: "http://file",
		},
		{
			name: "dotenv over file",
			file: "backend_url: http://file\n",
			denv: "NEXT_PUBLIC_BACKEND_URL=http://dotenv\n",
			want: "http://dotenv",
		},
		{
			name: "prefixed dotenv over alias",
			denv: "BACKEND_URL=http://alias\nLEAPCHAT_BACKEND_URL=http://prefixed\n",
			want: "http://prefixed",
		},
		{
			name: "env over dotenv",
			denv: "BACKEND_URL=http://dotenv\n",
			env:  map[string]string{"BACKEND_URL": "http://env"},
			want: "http://env",
		},
		{
			name: "prefixed env over alias env",
			env:  map[string]string{"BACKEND_URL": "http://alias", "LEAPCHAT_BACKEND_URL": "http://prefixed"},
			want: "http://prefixed",
		},
		{
			name:  "flag over everything",
			file:  "backend_url: http://file\n",
			env:   map[string]string{"LEAPCHAT_BACKEND_URL": "http://env"},
			flags: []string{"--backend-url", "http://flag"},
			want:  "http://flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, "leapchat.yaml"), tt.file)
			}
			if tt.denv != "" {
				writeFile(t, filepath.Join(dir, ".env"), tt.denv)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			chdir(t, dir)

			fs := newFlags()
			require.NoError(t, fs.Parse(tt.flags))

			cfg, err := LoadConfig("", fs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.BackendURL)
		})
	}
}

func TestLoadConfig_NestedEnvKeys(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("LEAPCHAT_GATEWAY__TIMEOUT", "5s")
	t.Setenv("LEAPCHAT_UI__PORT", "7000")
	t.Setenv("LEAPCHAT_STORE__DRIVER", "postgres")
	t.Setenv("LEAPCHAT_STORE__DSN", "postgres://localhost/chat")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 7000, cfg.UI.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/chat", cfg.Store.DSN)
}

func TestLoadConfig_Flags(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"-v", "-o", "json", "--store-driver", "sqlite", "--store-dsn", ":memory:"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel, "verbose lowers the level")
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
}

func TestLoadConfig_ExplicitLevelBeatsVerbose(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"-v", "--log-level", "warn"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		errSubstr string
	}{
		{"bad yaml", "backend_url: [", "error reading config file"},
		{"bad driver", "store:\n  driver: mongo\n", "unknown store.driver"},
		{"missing dsn", "store:\n  driver: postgres\n", "store.dsn is required"},
		{"bad output", "output: html\n", "invalid output"},
		{"bad level", "log_level: loud\n", "invalid log_level"},
		{"bad port", "ui:\n  port: 70000\n", "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "leapchat.yaml"), tt.file)
			chdir(t, dir)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_RequireBackend(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.RequireBackend(), ErrNoBackend)

	cfg.BackendURL = "http://localhost:8000"
	assert.NoError(t, cfg.RequireBackend())
}

func TestConfig_GetUIConfig(t *testing.T) {
	cfg := &Config{}
	ui := cfg.GetUIConfig()
	assert.Equal(t, DefaultPort, ui.Port)
	assert.Equal(t, DefaultSecret, ui.SessionSecret)

	cfg.UI.SessionSecret = "s3cret"
	assert.Equal(t, "s3cret", cfg.GetUIConfig().SessionSecret)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"BACKEND_URL":               "backend_url",
		"NEXT_PUBLIC_BACKEND_URL":   "backend_url",
		"LEAPCHAT_LOG_LEVEL":        "log_level",
		"LEAPCHAT_GATEWAY__TIMEOUT": "gateway.timeout",
		"HOME":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := NewLogger(os.Stderr, "debug")
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
