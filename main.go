// Package main implements the crash-video command line entry point.
package main

import (
	"os"

	"github.com/darkace1998/crash-video-recorder/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
