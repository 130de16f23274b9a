package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the component logging interface used throughout the validator.
// It is satisfied by *logrus.Logger and *logrus.Entry, so callers typically
// pass log.WithField("component", ...).
type Logger interface {
	logrus.FieldLogger
	Writer() *io.PipeWriter
}
