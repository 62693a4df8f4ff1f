package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logger honouring LogLevel and LogFormat. MCP stdio mode
// passes os.Stderr so that stdout carries only protocol messages.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level := logrus.InfoLevel
	if c.LogLevel != "" {
		var err error
		level, err = logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid logLevel: %w", err)
		}
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}
