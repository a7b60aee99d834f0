package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/moogle/go/internal/quiz/registry"
	"github.com/mcdev12/moogle/go/internal/quiz/room"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	PublicURL        string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	GameSettingsFile string        `env:"GAME_SETTINGS_FILE" envDefault:"config/game.yaml"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins      []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	NATSURL          string        `env:"NATS_URL"`
	ArchiveEnabled   bool          `env:"ARCHIVE_ENABLED" envDefault:"false"`
	SheetTimeout     time.Duration `env:"SHEET_FETCH_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MessagesPerSec   float64       `env:"WS_MESSAGES_PER_SEC" envDefault:"10"`
	MessageBurst     int           `env:"WS_MESSAGE_BURST" envDefault:"20"`
}

// GameConfig holds gameplay tuning loaded from YAML.
type GameConfig struct {
	Room     room.Settings   `yaml:"room"`
	Registry registry.Config `yaml:"registry"`
}

func loadConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	if cfg.MessagesPerSec <= 0 || cfg.MessageBurst <= 0 {
		return Config{}, errors.New("websocket rate limits must be positive")
	}
	return cfg, nil
}

// loadGameConfig reads path over the defaults. A missing file yields the defaults.
func loadGameConfig(path string) (GameConfig, error) {
	cfg := GameConfig{
		Room:     room.DefaultSettings(),
		Registry: registry.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return GameConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GameConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return GameConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c GameConfig) validate() error {
	r := c.Room
	switch {
	case r.RoundDuration <= 0, r.TickInterval <= 0:
		return errors.New("round_duration and tick_interval must be positive")
	case r.RetryDelay < 0, r.ResumeDelay < 0:
		return errors.New("retry_delay and resume_delay must not be negative")
	case r.Chest.BonusMin < 0 || r.Chest.BonusMax < r.Chest.BonusMin:
		return errors.New("chest bonus range is invalid")
	case r.Chest.StealPercent < 0 || r.Chest.StealPercent > 100:
		return errors.New("chest steal_percent must be within 0..100")
	case r.Chest.GiftAmount < 0:
		return errors.New("chest gift_amount must not be negative")
	case c.Registry.ReapInterval <= 0:
		return errors.New("reap_interval must be positive")
	case c.Registry.FinishedRoomTTL < 0, c.Registry.IdleRoomTTL <= 0:
		return errors.New("room TTLs are invalid")
	}
	return nil
}
