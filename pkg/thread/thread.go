// Package thread runs functions on the main OS thread, which SDL requires
// for window and renderer calls.
// See: https://github.com/golang/go/wiki/LockOSThread
package thread

import (
	"github.com/faiface/mainthread"
)

// Run executes run while the main OS thread serves Call.
// It must be called from the main goroutine and returns when run returns.
func Run(run func()) {
	mainthread.Run(run)
}

// Call runs f on the main thread and blocks until it finishes.
func Call(f func()) {
	mainthread.Call(f)
}

// CallErr runs f on the main thread and returns its error.
func CallErr(f func() error) error {
	return mainthread.CallErr(f)
}
