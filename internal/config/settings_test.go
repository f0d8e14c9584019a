package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, 10, s.MaxRounds)
	require.Equal(t, 30*time.Second, s.RequestTimeout)
	require.Equal(t, "us-east-1", s.Region)
	require.True(t, s.UseBedrock)
}

func TestLoadSettings_EnvOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(dotenv, []byte("MCPAGENT_MAX_ROUNDS=4\nMCPAGENT_MODEL=from-file\n"), 0o600))

	t.Setenv("MCPAGENT_MODEL", "from-env")
	t.Setenv("MCPAGENT_REQUEST_TIMEOUT", "5s")

	s, err := LoadSettings(dotenv)
	require.NoError(t, err)

	require.Equal(t, "from-env", s.Model)
	require.Equal(t, 4, s.MaxRounds)
	require.Equal(t, 5*time.Second, s.RequestTimeout)

	// godotenv.Load sets process env; keep other tests isolated.
	require.NoError(t, os.Unsetenv("MCPAGENT_MAX_ROUNDS"))
}

func TestLoadSettings_InvalidValue(t *testing.T) {
	t.Setenv("MCPAGENT_MAX_ROUNDS", "many")

	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "parse env")
}

func TestSettings_SlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, Settings{LogLevel: "DEBUG"}.SlogLevel())
	require.Equal(t, slog.LevelWarn, Settings{LogLevel: "warning"}.SlogLevel())
	require.Equal(t, slog.LevelInfo, Settings{LogLevel: "verbose"}.SlogLevel())
}
