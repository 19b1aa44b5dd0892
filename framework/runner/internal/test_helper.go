// Package internal contains test helpers for runner.
package internal

// RunAction is used only in unit tests, but exported because it has to be in a separate package
// for stacktraces to show it outside the runner package.
func RunAction(action func()) {
	action()
}
