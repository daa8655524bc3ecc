package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger
var once sync.Once

// GetLogger returns the process-wide logger. Writes to stdout and logs/app.log.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		logger.SetLevel(logrus.InfoLevel)

		writers := []io.Writer{os.Stdout}

		err := os.MkdirAll("logs", 0770)
		if err == nil {
			file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
			if err == nil {
				writers = append(writers, file)
			}
		}

		logger.SetOutput(io.MultiWriter(writers...))
	})
	return logger
}

// SetDebug switches the logger to debug level. Called from main after the config is read.
func SetDebug(debug bool) {
	l := GetLogger()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
}
