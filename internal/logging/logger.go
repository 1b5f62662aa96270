// Package logging configures the structured logger shared by the server,
// the services and the HTTP middleware.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// Logger is the process-wide logger. Init replaces it; packages that are
// constructed explicitly take a *logrus.Logger instead of reading this.
var Logger = logrus.New()

type Options struct {
	Service string
	Level   string
	Format  string // "json" | "text"
	Output  io.Writer
}

// Init builds the process logger from opts and installs it as Logger.
func Init(opts Options) *logrus.Logger {
	l := logrus.New()

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	if strings.EqualFold(opts.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	l.SetLevel(ParseLevel(opts.Level))

	if opts.Service != "" {
		l.AddHook(serviceHook{service: opts.Service})
	}

	Logger = l
	return l
}

// ParseLevel falls back to info for empty or unknown levels.
func ParseLevel(level string) logrus.Level {
	if level == "" {
		return logrus.InfoLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// GormLevel maps the application log level onto gorm's coarser levels.
func GormLevel(level string) gormlogger.LogLevel {
	switch ParseLevel(level) {
	case logrus.TraceLevel, logrus.DebugLevel:
		return gormlogger.Info
	case logrus.InfoLevel, logrus.WarnLevel:
		return gormlogger.Warn
	case logrus.ErrorLevel:
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// serviceHook stamps every entry with the service name.
type serviceHook struct {
	service string
}

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = h.service
	}
	return nil
}
