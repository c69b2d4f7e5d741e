// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global structured logger used by the service.
//
// It starts as a no-op logger so packages can log before InitLogger runs.
var Logger = zap.NewNop().Sugar()

// InitLogger initializes the global Logger with a JSON encoder on stdout.
// Unknown levels fall back to info.
func InitLogger(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(os.Stdout), lvl)
	SetLogger(zap.New(core))
}

// SetLogger replaces the global Logger. Tests use it to install an observer core.
func SetLogger(l *zap.Logger) {
	Logger = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
