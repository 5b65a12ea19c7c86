package utils

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// Log is the shared application logger.
var Log = logrus.New()

// InitLogger configures the global logger for the given environment.
func InitLogger(environment string) {
	if environment == "production" {
		Log.SetFormatter(&logrus.JSONFormatter{})
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		Log.SetLevel(logrus.DebugLevel)
	}
}

// ComponentLogger returns an entry tagged with the component name, one per
// worker/controller.
func ComponentLogger(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// InitSentry sets up error reporting. A missing DSN disables it silently so
// local development needs no Sentry project.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return fmt.Errorf("sentry init failed: %w", err)
	}
	return nil
}

// CaptureError reports an operator-visible failure to Sentry with context
// tags. No-op when Sentry is not configured.
func CaptureError(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
	sentry.Flush(2 * time.Second)
}
