// Package logging builds the zap.Logger used across guidectl's
// subcommands, trimmed to the level/format/output concerns a
// short-lived CLI process actually needs.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing to stderr at level, encoded as
// "json" or "console" (anything else falls back to "console").
func New(level, format string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: parsing level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapLevel)
	return zap.New(core, zap.AddCaller()), nil
}

// Nop returns a logger that discards everything, for tests and
// library callers that haven't opted into logging.
func Nop() *zap.Logger { return zap.NewNop() }
