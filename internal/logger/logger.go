package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging surface used across the application. Components pass
// their name explicitly so log output stays greppable per subsystem.
type Logger interface {
	Debug(component, msg string, fields map[string]interface{})
	Info(component, msg string, fields map[string]interface{})
	Warning(component, msg string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// LevelFromEnv maps LOG_LEVEL (or DEBUG=1) to a zerolog level.
func LevelFromEnv() zerolog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		if os.Getenv("DEBUG") == "1" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}
}
