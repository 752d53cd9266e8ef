package port

// Logger is the key/value logging interface handed to components that are
// not tied to zap, such as the persistence gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
