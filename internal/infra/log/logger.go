package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger создаёт настроенный zerolog.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "dev" {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "world-builder").Logger().Level(level)
}

// CronAdapter обёртывает zerolog под интерфейс логгера cron.
type CronAdapter struct {
	Logger zerolog.Logger
}

// Info пишет служебные сообщения планировщика на уровне debug.
func (a CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.Logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

// Error пишет ошибки планировщика.
func (a CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.Logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
