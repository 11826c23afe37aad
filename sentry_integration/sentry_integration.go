package sentry_integration

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/syncwatch/syncwatch/config"
)

// Init configures the global hub. Without a DSN it does nothing and every
// capture below becomes a no-op.
func Init(cfg *config.Config) error {
	sc := cfg.GetSentryConfig()
	if sc == nil {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              sc.DSN,
		SampleRate:       sc.SampleRate,
		TracesSampleRate: sc.TracesSampleRate,
		Environment:      sc.Environment,
		Release:          fmt.Sprintf("syncwatch@%s", config.Version),
	})
}

func CaptureCurrentHubException(err error, level sentry.Level) {
	CaptureException(sentry.CurrentHub(), err, level)
}

func CaptureException(hub *sentry.Hub, err error, level sentry.Level) {
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		hub.CaptureException(err)
	})
}

// CaptureExceptionWithTags reports err on the current hub with extra tags,
// e.g. the deployment being aggregated.
func CaptureExceptionWithTags(err error, level sentry.Level, tags map[string]string) {
	hub := sentry.CurrentHub()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
