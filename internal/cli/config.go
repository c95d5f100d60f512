package cli

import (
	"errors"
	"io/fs"

	"github.com/rs/zerolog"

	"quiz-room-service/internal/config"
	"quiz-room-service/internal/logger"
)

// loadConfig reads the YAML config and builds the logger it describes. A
// missing file falls back to defaults so the service can start bare.
func loadConfig(path string) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, zerolog.Nop(), err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	}
	return cfg, log, nil
}
