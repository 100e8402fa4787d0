package epu

import (
	"log/slog"
	"sync/atomic"
)

// logger is shared by the runtime, the registered accelerator and the
// metrics server. It discards everything until SetLogger installs one.
var logger atomic.Pointer[slog.Logger]

func init() { logger.Store(silentLogger()) }

func silentLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// SetLogger routes EPU diagnostics to l and forwards it to the registered
// accelerator. Passing nil silences them again. It is safe to call while
// builds are running.
//
// Levels:
//   - [slog.LevelDebug]: one record per Build with the environment and
//     skip counts, and accelerator batch declines
//   - [slog.LevelInfo]: runtime creation, accelerator registration and the
//     GPU adapter in use
//   - [slog.LevelWarn]: active-set overflow and accelerator failures that
//     rebuild on the CPU
//
// Example:
//
//	epu.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silentLogger()
	}
	logger.Store(l)
	if a := Accelerator(); a != nil {
		forwardLogger(a, l)
	}
}

// Logger returns the current logger. Sub-packages log through it so one
// SetLogger call configures the whole module.
func Logger() *slog.Logger { return logger.Load() }

// forwardLogger hands l to accelerators that keep their own logger.
func forwardLogger(a RadianceAccelerator, l *slog.Logger) {
	if ls, ok := a.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(l)
	}
}
