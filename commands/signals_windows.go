//go:build windows

package commands

import "os"

// Windows has no user signals; capture through /api/capture instead.
var captureSignals []os.Signal
