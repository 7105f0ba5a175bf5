package util

import "go.uber.org/zap"

// globalLogger backs Info/Error/Warn/Debug below, a package-level
// *zap.Logger wrapped by plain util.Info(msg string, fields ...zap.Field)
// functions so call sites never touch the logger directly.
var globalLogger = mustNewLogger(false)

func mustNewLogger(debug bool) *zap.Logger {
	if debug {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// SetDebugLogging swaps the global logger for a development one (human
// readable, debug level enabled), used by resultbufctl's debug.showRaw
// setting.
func SetDebugLogging(debug bool) {
	_ = globalLogger.Sync()
	globalLogger = mustNewLogger(debug)
}

func Info(msg string, fields ...zap.Field) {
	globalLogger.Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	globalLogger.Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	globalLogger.Warn(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	globalLogger.Debug(msg, fields...)
}
