package async

import "runtime/debug"

// errorLogger is the one method of *utils.Logger the panic guard needs.
type errorLogger interface {
	Error(format string, args ...any)
}

// Go starts fn on its own goroutine with a panic guard. Websocket pumps and
// other background work must log a panic with its stack instead of taking
// the whole server down. name tags the log line; a nil logger only swallows
// the panic.
func Go(logger errorLogger, name string, fn func()) {
	go func() {
		defer func() {
			r := recover()
			if r == nil || logger == nil {
				return
			}
			logger.Error("goroutine %s panicked: %v\nstack: %s", name, r, debug.Stack())
		}()
		fn()
	}()
}
