//go:build unix

package main

import (
	"os"
	"syscall"
)

// SIGUSR1 toggles push-to-talk and SIGUSR2 toggles live mode, so a
// desktop hotkey can toggle with `kill -USR1 <pid>`.
var toggleSignals = []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}

func isLiveToggle(s os.Signal) bool {
	return s == syscall.SIGUSR2
}
