package core

// Logger is implemented by the app loggers (rollbar, test...).
// args may carry errors, context maps or the roster entry of the acting person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
