//go:build !unix

package main

import "os"

// No user signals here; use the HTTP control API.
var toggleSignals []os.Signal

func isLiveToggle(os.Signal) bool {
	return false
}
