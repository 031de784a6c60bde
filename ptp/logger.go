package ptp

// Logger is the structured-logging collaborator the core emits through;
// spec §1 "Vendor-specific logging/tracing renderers (a Logger interface
// receives structured records)". The core never imports a logging
// library directly — only internal/ptplog's adapter does, grounded on
// the teacher's log/log.go ChildLogger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nullLogger discards everything; used when a caller doesn't supply one.
type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{}) {}
func (nullLogger) Infof(string, ...interface{})  {}
func (nullLogger) Warnf(string, ...interface{})  {}
func (nullLogger) Errorf(string, ...interface{}) {}

// NullLogger returns a Logger that discards all records.
func NullLogger() Logger { return nullLogger{} }
