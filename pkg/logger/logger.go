// Package logger constructs the structured logger shared by every lattice
// subsystem. All components receive a *zap.SugaredLogger through their Config
// structs rather than creating their own, which keeps field conventions and
// output destinations consistent across the engine.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-grade sugared logger tagged with the given service
// name. Output goes to stderr so that embedding applications remain free to
// use stdout for their own data.
func New(service string) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.InitialFields = map[string]any{"service": service}

	log, err := config.Build()
	if err != nil {
		// A broken logging setup should never take the database down with it.
		// Fall back to a console logger writing to stderr.
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.InfoLevel)
		return zap.New(core).Sugar()
	}

	return log.Sugar()
}
