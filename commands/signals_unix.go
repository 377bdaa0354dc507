//go:build !windows

package commands

import (
	"os"
	"syscall"
)

var captureSignals = []os.Signal{syscall.SIGUSR1}
