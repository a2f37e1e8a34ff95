/*------------------------------------------------------------------
 *
 * Package:	logging
 *
 * Purpose:	Process-scoped structured logging, initialized once at
 *		startup and torn down at quit. Never touched from the
 *		audio callback's hot path — the audio thread downgrades
 *		its own errors to silence (see internal/mixer) and the
 *		UI thread logs on its behalf, once per tick.
 *
 *------------------------------------------------------------------*/
package logging

import (
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

const telemetryPath = "/tmp/zim-player.log"

var (
	initOnce sync.Once
	logger   *charmlog.Logger
	telemetryFile *os.File
)

// Init sets up the process logger. Safe to call multiple times; only
// the first call takes effect. When telemetry is true, log lines are
// additionally appended to /tmp/zim-player.log (spec §6).
func Init(telemetry bool, verbose bool) {
	initOnce.Do(func() {
		var w io.Writer = os.Stderr

		if telemetry {
			f, err := os.OpenFile(telemetryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err == nil {
				telemetryFile = f
				w = io.MultiWriter(os.Stderr, f)
			}
		}

		logger = charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.000",
			Prefix:          "zim",
		})

		if verbose {
			logger.SetLevel(charmlog.DebugLevel)
		} else {
			logger.SetLevel(charmlog.InfoLevel)
		}
	})
}

// Get returns the process logger, initializing a bare-bones default if
// Init was never called (keeps package consumers and tests from needing
// to remember to call Init first).
func Get() *charmlog.Logger {
	if logger == nil {
		Init(false, false)
	}
	return logger
}

// With returns a sub-logger scoped to component, e.g. logging.With("decoder").
func With(component string) *charmlog.Logger {
	return Get().With("component", component)
}

// Close flushes and releases the telemetry sink, if one was opened.
// Called once at quit.
func Close() {
	if telemetryFile != nil {
		_ = telemetryFile.Close()
		telemetryFile = nil
	}
}
