package soapysdr

import (
	"log/slog"
	"sync/atomic"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger sets the logger used for stream lifecycle and transfer events.
// Events are logged at Debug level. A nil logger discards everything, which
// is also the default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	pkgLogger.Store(l)
}

func logger() *slog.Logger { return pkgLogger.Load() }
