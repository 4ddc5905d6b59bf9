// Package logger builds the logrus loggers used across the Crosscheck engine:
// the base application logger plus the study and audit wrappers.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the base application logger. Deployments set
// CROSSCHECK_ENV=production to switch to JSON output for log shipping;
// anything else gets colored text for local runs.
func NewLogger(logLevel string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if os.Getenv("CROSSCHECK_ENV") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	return log
}
