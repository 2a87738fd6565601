package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger writes to stdout for local runs and appends to logPath otherwise
func SetupLogger(env, logPath string) *slog.Logger {
	var out io.Writer = os.Stdout
	level := slog.LevelDebug

	switch env {
	case envLocal:
	case envDev, envProd:
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
		out = logFile
		if env == envProd {
			level = slog.LevelInfo
		}
	default:
		log.Fatal("invalid environment: ", env)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// WithTelegram forwards records at minLevel and above to the notifier
func WithTelegram(logger *slog.Logger, notifier Notifier, minLevel slog.Level) *slog.Logger {
	if notifier == nil {
		return logger
	}
	return slog.New(NewTelegramHandler(logger.Handler(), notifier, minLevel))
}
