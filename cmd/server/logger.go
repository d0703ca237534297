package main

import (
	"github.com/munaimtahir/kwh/internal/config"
	"github.com/munaimtahir/kwh/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
