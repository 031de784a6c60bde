// Package ptplog adapts logrus, with the teacher's prefixed-formatter
// styling, to the ptp.Logger collaborator interface the core packages
// depend on. The core ptp package never imports logrus directly; this
// is the one place that wiring happens, grounded on log/log.go's Root
// logger and ChildLogger.
package ptplog

import (
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/hanwen/go-ptp/ptp"
)

// Root is the shared logrus logger every ptp.Logger adapter writes
// through, configured the way log.go's Root is: prefixed formatter,
// colors disabled when TERM is unset or empty.
var Root = &logrus.Logger{
	Out:   os.Stdout,
	Level: logrus.InfoLevel,
	Formatter: &prefixed.TextFormatter{
		DisableColors: func() bool {
			term, ok := os.LookupEnv("TERM")
			return term == "" || !ok
		}(),
		ForceFormatting: true,
		TimestampFormat: "2006-01-02 15:04:05",
	},
}

// SetDebug raises or lowers Root's level, mirroring the teacher's
// per-subsystem debug flags (Debug.MTP, Debug.USB, Debug.Data) but
// applied to the single shared logger this module threads everywhere.
func SetDebug(debug bool) {
	if debug {
		Root.SetLevel(logrus.DebugLevel)
	} else {
		Root.SetLevel(logrus.InfoLevel)
	}
}

// childLogger implements ptp.Logger by tagging every entry with a
// "prefix" field, the same field log.go's ChildLogger uses to label
// usb/mtp/data/lv subsystems.
type childLogger struct {
	parent *logrus.Logger
	prefix string
}

// New returns a ptp.Logger that labels its output with prefix, e.g.
// "camera", "engine", "usb".
func New(prefix string) ptp.Logger {
	return &childLogger{parent: Root, prefix: prefix}
}

func (l *childLogger) entry() *logrus.Entry {
	return l.parent.WithField("prefix", l.prefix)
}

func (l *childLogger) Debugf(format string, args ...interface{}) { l.entry().Debugf(format, args...) }
func (l *childLogger) Infof(format string, args ...interface{})  { l.entry().Infof(format, args...) }
func (l *childLogger) Warnf(format string, args ...interface{})  { l.entry().Warnf(format, args...) }
func (l *childLogger) Errorf(format string, args ...interface{}) { l.entry().Errorf(format, args...) }
