package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

func validateLoggerConfig(cfgError configError) {
	cfg := LoggerConfig{}
	if config.Logger != nil {
		cfg = *config.Logger
	}
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		cfgError(fmt.Sprintf("logger.level is not valid: %v", err))
		return
	}
	env := strings.ToLower(cfg.Env)
	if !(env == "" || env == "dev" || env == "prod") {
		cfgError("logger.env could be either \"dev\" or \"prod\".")
		return
	}
	l, err := buildLogger(env, level)
	if err != nil {
		cfgError(fmt.Sprintf("logger could not be created: %v", err))
		return
	}
	logger = l.With(zap.String("service", appName))
}

func buildLogger(env string, level zapcore.Level) (*zap.Logger, error) {
	if env == "prod" {
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		return zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func parseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown level '%v'", level)
}
