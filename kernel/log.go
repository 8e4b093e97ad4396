//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(params *Params) (*zap.Logger, error) {
	if params.Logger != nil {
		return params.Logger, nil
	}
	level := params.LogLevel
	if len(level) == 0 {
		level = os.Getenv("LOG")
	}
	var lvl zapcore.Level
	switch strings.ToUpper(level) {
	case "":
		return zap.NewNop(), nil
	case "TRACE", "DEBUG":
		lvl = zapcore.DebugLevel
	case "INFO":
		lvl = zapcore.InfoLevel
	case "WARN":
		lvl = zapcore.WarnLevel
	case "ERROR":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
