package rpc

import (
	"fmt"
	"io"
	"os"
)

// Logger is the logging seam for failures that have no narrower observer
// hook to report through; refill.RedisQueue.Hook reports through it.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// StdLogger writes formatted error lines to an io.Writer.
type StdLogger struct {
	writer io.Writer
}

// Errorf implements Logger.
func (l *StdLogger) Errorf(format string, args ...interface{}) {
	if l.writer != nil {
		fmt.Fprintf(l.writer, format+"\n", args...)
	}
}

// NewStdLogger creates a StdLogger; a nil writer defaults to os.Stderr.
func NewStdLogger(writer io.Writer) *StdLogger {
	if writer == nil {
		writer = os.Stderr
	}
	return &StdLogger{writer: writer}
}

// DefaultLogger is used by refill.RedisQueue.Hook when no Logger is supplied.
var DefaultLogger Logger = NewStdLogger(os.Stderr)

// Listener observes every wire-level message handled by a transfer, independent
// of request/response dispatch (spec §6.1).
type Listener func(*Message)
