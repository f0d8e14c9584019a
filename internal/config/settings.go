package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds process-level configuration read from the environment.
type Settings struct {
	Model          string        `env:"MCPAGENT_MODEL"           envDefault:"claude-sonnet-4"`
	MaxTokens      int           `env:"MCPAGENT_MAX_TOKENS"      envDefault:"2048"`
	MaxRounds      int           `env:"MCPAGENT_MAX_ROUNDS"      envDefault:"10"`
	UseBedrock     bool          `env:"MCPAGENT_USE_BEDROCK"     envDefault:"true"`
	Region         string        `env:"AWS_REGION"               envDefault:"us-east-1"`
	Profile        string        `env:"AWS_PROFILE"`
	APIKey         string        `env:"ANTHROPIC_API_KEY"`
	RequestTimeout time.Duration `env:"MCPAGENT_REQUEST_TIMEOUT" envDefault:"30s"`
	SalesDir       string        `env:"MCPAGENT_SALES_DIR"       envDefault:"data/sales_data"`
	ReadmePath     string        `env:"MCPAGENT_README"          envDefault:"data/README.md"`
	HTTPAddr       string        `env:"MCPAGENT_HTTP_ADDR"       envDefault:"localhost:8081"`
	LogLevel       string        `env:"MCPAGENT_LOG_LEVEL"       envDefault:"info"`
}

// LoadSettings loads .env files, when present, and parses the environment.
// Variables already set in the environment win over .env values.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	return s, nil
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
