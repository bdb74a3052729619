package observability

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"go-terrawatch/config"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// InitializeLogger sets up the global zap logger from configuration.
// Console output always; a rotated JSON file core is added when log_file
// is set. Safe to call more than once, only the first call wins.
func InitializeLogger(cfg config.LoggerConfig) *zap.Logger {
	once.Do(func() {
		level := zap.NewAtomicLevel()
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.InfoLevel)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		var consoleEnc zapcore.Encoder
		if cfg.Format == "json" {
			consoleEnc = zapcore.NewJSONEncoder(encCfg)
		} else {
			consoleEnc = zapcore.NewConsoleEncoder(encCfg)
		}

		cores := []zapcore.Core{
			zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), level),
		}

		if cfg.LogFile != "" {
			// lumberjack handles rotation and thread-safe writes.
			fileWriter := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileWriter, level))
		}

		logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("terrawatch")
		globalLogger = logger
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
	return globalLogger
}

// GetLogger returns the global logger, or a development fallback when
// InitializeLogger has not run (tests mostly use zap.NewNop directly).
func GetLogger() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
