package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options logger construction options
type Options struct {
	AppEnv  string
	AppName string
	Level   string
}

// New builds the process logger and installs it as the zap global
func New(opts Options) *zap.Logger {
	var cfg zap.Config
	if opts.AppEnv == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.StacktraceKey = "stacktrace"
		cfg.EncoderConfig.LevelKey = "severity"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.Encoding = "json"
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if opts.Level != "" {
		if lvl, err := zapcore.ParseLevel(opts.Level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	log = log.With(
		zap.String("env", opts.AppEnv),
		zap.String("service_name", opts.AppName),
	)

	zap.ReplaceGlobals(log)
	return log
}

// OrGlobal returns l, or the zap global logger when l is nil
func OrGlobal(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.L()
	}
	return l
}
