// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"log/slog"
	"sync/atomic"
)

// logger receives the accelerator's adapter and batch diagnostics. It
// starts silent; epu.SetLogger replaces it through Accelerator.SetLogger.
var logger atomic.Pointer[slog.Logger]

func init() { setLogger(nil) }

func slogger() *slog.Logger { return logger.Load() }

func setLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}
