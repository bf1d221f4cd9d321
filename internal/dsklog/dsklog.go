// dsklog package is just a simple wrapper around logrus
package dsklog

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// logLevelEnvVar overrides the level passed on the command line.
const logLevelEnvVar = "IMGDITTO_LOG_LEVEL"

// Global logger instance
var Dlogger = logrus.New()

// InitializeDlogger resets Dlogger to append to logFile at info level, or
// the level named by IMGDITTO_LOG_LEVEL. When the file cannot be opened the
// logger writes to stderr and the error is returned.
func InitializeDlogger(logFile string) error {
	Dlogger = logrus.New()
	Dlogger.SetLevel(logrus.InfoLevel)
	Dlogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	var openErr error
	// #nosec G304 -- log path comes from flags or config
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		openErr = fmt.Errorf("open log file %s: %w", logFile, err)
		Dlogger.SetOutput(os.Stderr)
	} else {
		Dlogger.SetOutput(file)
	}

	if EnvLevelSet() {
		lvl := os.Getenv(logLevelEnvVar)
		if err := SetLevel(lvl); err != nil {
			Dlogger.Warnf("Ignoring %s: %v", logLevelEnvVar, err)
		}
	}
	return openErr
}

// SetLevel changes the level of Dlogger. An unknown level leaves the
// current level untouched.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	Dlogger.SetLevel(lvl)
	return nil
}

// EnvLevelSet reports whether the level was pinned through the environment.
func EnvLevelSet() bool {
	return strings.TrimSpace(os.Getenv(logLevelEnvVar)) != ""
}

// WithRun tags entries with a run ID so interleaved runs sharing one log
// file can be told apart.
func WithRun(id string) *logrus.Entry {
	return Dlogger.WithField("run", id)
}
