// Package logging builds the zap logger shared by the server and client
// binaries, generalizing cppla-moto's global-logger-plus-lumberjack-hook
// setup into a constructor so each binary can point it at its own log
// file and level instead of a package-init global.
package logging

import (
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// Options configures New.
type Options struct {
	// Level is one of debug|info|warn|error|dpanic|panic|fatal. Unknown
	// values fall back to info.
	Level string
	// File is the log file path. Empty disables the file sink and logs
	// to stderr instead, which is convenient for short-lived test runs.
	File string
}

// New builds a zap.Logger per opts. When File is set, output goes
// through a lumberjack rolling-file hook (1GB per file, 5 backups,
// 30-day retention, gzip'd); otherwise it goes to stderr.
func New(opts Options) (*zap.Logger, error) {
	level, ok := levelMap[opts.Level]
	if !ok {
		level = zapcore.InfoLevel
	}
	enabler := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level
	})

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	var sink zapcore.WriteSyncer
	if opts.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    1024,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, sink, enabler)
	return zap.New(core, zap.AddCaller()), nil
}

// Nop returns a logger that discards everything, used by tests and
// components that haven't been handed a real logger.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}
