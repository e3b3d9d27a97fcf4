package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "mufa-login"

var globalLogger = zap.NewNop()

// getConsoleEncoder returns a colored console encoder for local runs
func getConsoleEncoder() zapcore.EncoderConfig {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return encoderConfig
}

// getJSONEncoder returns a JSON encoder with durations in seconds
func getJSONEncoder() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder
	return encoderConfig
}

// encoderFor maps logging.format to a zap encoding
func encoderFor(format string) (string, zapcore.EncoderConfig, error) {
	switch format {
	case "json":
		return "json", getJSONEncoder(), nil
	case "console", "":
		return "console", getConsoleEncoder(), nil
	default:
		return "", zapcore.EncoderConfig{}, fmt.Errorf("invalid log format: %s", format)
	}
}

// sinks returns the output and error output paths. The log file directory is
// created and, unless appending, the previous file is truncated.
func sinks(cfg *config.LoggingConfig) (out, errOut []string, err error) {
	if !cfg.DisableConsole {
		out = append(out, "stdout")
		errOut = append(errOut, "stderr")
	}

	if cfg.OutputPath != "" {
		if dir := filepath.Dir(cfg.OutputPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		if !cfg.AppendToFile {
			_ = os.Remove(cfg.OutputPath)
		}
		out = append(out, cfg.OutputPath)
		errOut = append(errOut, cfg.OutputPath)
	}

	// every sink disabled falls back to the console
	if len(out) == 0 {
		out = []string{"stdout"}
		errOut = []string{"stderr"}
	}
	return out, errOut, nil
}

// InitLogger initializes the global logger with the given configuration
func InitLogger(cfg *config.LoggingConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}

	globalLogger = logger
	return nil
}

// NewLogger builds a logger tagged with the service name and build version.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %v", err)
	}

	encoding, encoderConfig, err := encoderFor(cfg.Format)
	if err != nil {
		return nil, err
	}

	out, errOut, err := sinks(cfg)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		OutputPaths:      out,
		ErrorOutputPaths: errOut,
		EncoderConfig:    encoderConfig,
		InitialFields: map[string]interface{}{
			"service": serviceName,
			"version": config.Version(),
		},
	}

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if !cfg.DisableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %v", err)
	}
	return logger, nil
}

// SetLogger replaces the global logger. Used by tests to capture output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalLogger = l
}

// FxEventLogger routes fx lifecycle events through the global logger.
func FxEventLogger() fxevent.Logger {
	return &fxevent.ZapLogger{Logger: globalLogger.WithOptions(zap.AddCallerSkip(-1))}
}

func Debug(msg string, fields ...zap.Field) {
	globalLogger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	globalLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	globalLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	globalLogger.Error(msg, fields...)
}

// With returns a child logger, e.g. one scoped to a single login attempt
func With(fields ...zap.Field) *zap.Logger {
	return globalLogger.With(fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return globalLogger.Sync()
}
