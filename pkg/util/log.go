package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return encoderCfg
}

// consoleCore routes Debug..Warn to stdout and Error+ to stderr, so
// rejected orders interleave with progress while fatal diagnostics land
// on the error stream.
func consoleCore(level zapcore.Level) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(encoderConfig())

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.ErrorLevel
	})

	return zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), low),
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), high),
	)
}

func NewLogger() (*zap.Logger, error) {
	return zap.New(consoleCore(zap.InfoLevel), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

// NewLoggerWithFile creates a logger that writes to the console and,
// as JSON, to logPath.
func NewLoggerWithFile(logPath string) (*zap.Logger, error) {
	if logPath == "" {
		return NewLogger()
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	fileEncoder := zapcore.NewJSONEncoder(encoderConfig())

	core := zapcore.NewTee(
		consoleCore(zap.InfoLevel),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(file), zap.InfoLevel),
	)

	return zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}
