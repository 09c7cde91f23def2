package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// SentryInit wires an optional crash reporter for startup/fatal failures
// only — never per-connection or per-request data, since a keyless
// server's whole purpose is to never let key material or client traffic
// leave the process. It is a no-op unless dsn is set, which is the
// default: nothing here changes behavior unless an operator opts in.
func SentryInit(dsn string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn: dsn,
	})
}

// CaptureFatal reports err to Sentry (if initialized) and blocks briefly
// so the event has a chance to flush before the process exits.
func CaptureFatal(logger *zap.Logger, err error) {
	sentry.CaptureException(err)
	if ok := sentry.Flush(2 * time.Second); !ok {
		logger.Debug("sentry flush timed out")
	}
}
