//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"
)

// deviceLog is shared by the dispatcher and the accelerator. Records carry
// component=gpu so device messages can be filtered from pipeline ones.
var deviceLog atomic.Pointer[slog.Logger]

func init() {
	setLogger(nil)
}

func slogger() *slog.Logger { return deviceLog.Load() }

// setLogger backs Accelerator.SetLogger. nil silences the package.
func setLogger(l *slog.Logger) {
	if l == nil {
		deviceLog.Store(slog.New(slog.DiscardHandler))
		return
	}
	deviceLog.Store(l.With("component", "gpu"))
}
