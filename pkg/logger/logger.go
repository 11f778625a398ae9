package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init configures the process-wide logger. Unknown levels fall back to info
// and unknown formats to text.
func Init(level, format string) error {
	return InitWithOutput(level, format, os.Stdout)
}

func InitWithOutput(level, format string, out io.Writer) error {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	l.SetOutput(out)
	log = l

	if err != nil && level != "" {
		l.Warnf("unknown log level %q, using info", level)
	}
	return nil
}

// L returns the underlying logger, creating a default one if Init was never called.
func L() *logrus.Logger {
	if log == nil {
		_ = Init("info", "text")
	}
	return log
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

func Debugf(format string, args ...interface{}) {
	if log != nil {
		log.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if log != nil {
		log.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if log != nil {
		log.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if log != nil {
		log.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if log != nil {
		log.Errorf(format, args...)
	} else {
		fmt.Printf("ERROR: "+format+"\n", args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	if log != nil {
		log.Fatalf(format, args...)
	} else {
		fmt.Printf("FATAL: "+format+"\n", args...)
		os.Exit(1)
	}
}
