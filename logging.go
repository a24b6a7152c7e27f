package vudp

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vgnet/vudp/rudp"
)

// Logger is rudp.Logger, re-exported so callers configuring a Session
// don't need to import the rudp package just to name the type.
type Logger = rudp.Logger

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger returns a Logger backed by logrus at the given level, tagged
// with a fresh random session id so multiple Sessions in one process stay
// distinguishable in logs.
func NewLogger(level logrus.Level) Logger {
	return newTaggedLogger(level, uuid.New())
}

func newTaggedLogger(level logrus.Level, id uuid.UUID) Logger {
	l := logrus.New()
	l.SetLevel(level)
	return &logrusLogger{entry: l.WithField("session", id.String())}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
