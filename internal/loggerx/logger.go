package loggerx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration parameters.
type Config struct {
	Level         string `yaml:"level"`
	DisableColors bool   `yaml:"disableColors"`
}

// New returns a new logger based on a given configuration, writing to stderr.
func New(cfg Config) logrus.FieldLogger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is like New but writes to out.
func NewWithOutput(cfg Config, out io.Writer) *logrus.Logger {
	logLevel, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		// Set Info level as a default
		logLevel = logrus.InfoLevel
	}

	return &logrus.Logger{
		Out:       out,
		Formatter: &logrus.TextFormatter{FullTimestamp: true, DisableColors: cfg.DisableColors},
		Hooks:     make(logrus.LevelHooks),
		Level:     logLevel,
		ExitFunc:  os.Exit,
	}
}

// NewDiscard returns a logger that drops everything. Used in tests.
func NewDiscard() logrus.FieldLogger {
	return NewWithOutput(Config{Level: "panic"}, io.Discard)
}
