// Package gwlog provides the gateway's structured logger: a zap.Logger
// with independently switchable console/file levels, matching the
// teacher codebase's dynamic-logger idiom.
package gwlog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DynamicLogger wraps zap.Logger with the ability to switch levels at runtime.
type DynamicLogger struct {
	*zap.Logger
	consoleLevel *zap.AtomicLevel
	fileLevel    *zap.AtomicLevel
	configured   Config
}

// SwitchToConfiguredLevel restores the originally configured levels, undoing
// any temporary override (e.g. a startup verbosity bump).
func (dl *DynamicLogger) SwitchToConfiguredLevel() {
	globalLevel := parseLevel(dl.configured.Level)

	if dl.consoleLevel != nil {
		dl.consoleLevel.SetLevel(resolveLevel(dl.configured.Console.Level, globalLevel))
	}
	if dl.fileLevel != nil {
		dl.fileLevel.SetLevel(resolveLevel(dl.configured.File.Level, globalLevel))
	}
}

// NewLogger builds a DynamicLogger from Config.
func NewLogger(config Config) (*DynamicLogger, error) {
	globalLevel := parseLevel(config.Level)

	var cores []zapcore.Core
	var consoleLevel, fileLevel *zap.AtomicLevel

	if config.Console.Enabled {
		level := zap.NewAtomicLevelAt(resolveLevel(config.Console.Level, globalLevel))
		consoleLevel = &level
		cores = append(cores, zapcore.NewCore(createEncoder(config.Console.Format), zapcore.Lock(os.Stdout), consoleLevel))
	}

	if config.File.Enabled {
		if config.File.Path == "" {
			return nil, fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}
		level := zap.NewAtomicLevelAt(resolveLevel(config.File.Level, globalLevel))
		fileLevel = &level
		cores = append(cores, zapcore.NewCore(createEncoder(config.File.Format), createFileWriter(config.File.Path, config.File.Rotation), fileLevel))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one log output (console or file) must be enabled")
	}

	var core zapcore.Core
	if len(cores) == 1 {
		core = cores[0]
	} else {
		core = zapcore.NewTee(cores...)
	}

	return &DynamicLogger{
		Logger:       zap.New(core),
		consoleLevel: consoleLevel,
		fileLevel:    fileLevel,
		configured:   config,
	}, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zap.DebugLevel
	case LevelInfo:
		return zap.InfoLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func resolveLevel(outputLevel string, globalLevel zapcore.Level) zapcore.Level {
	if outputLevel != "" {
		return parseLevel(outputLevel)
	}
	return globalLevel
}

func createEncoder(format string) zapcore.Encoder {
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	if format == FormatText {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func createFileWriter(path string, rotation RotationConfig) zapcore.WriteSyncer {
	lumberLogger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotation.MaxSize,
		MaxAge:     rotation.MaxAge,
		MaxBackups: rotation.MaxBackups,
		Compress:   rotation.Compress,
	}
	return zapcore.AddSync(lumberLogger)
}

// NewDefault creates a console-only, debug-level logger for use before
// configuration has been loaded.
func NewDefault() (*DynamicLogger, error) {
	return NewLogger(Config{
		Level: LevelDebug,
		Console: ConsoleConfig{
			Enabled: true,
			Format:  FormatConsole,
		},
	})
}
