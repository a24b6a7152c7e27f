package rudp

// Logger is the leveled sink this package logs through. It never imports
// a logging library itself — callers wire in whatever they like (vudp's
// default implementation is backed by logrus) — since logging is treated
// here as an abstract collaborator, not a concrete dependency.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards everything. It's the default when NewConnection is
// given a nil Logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
