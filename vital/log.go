package vital

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger

func init() {
	// Give a default logger at the start to avoid null pointer error
	log = logrus.New()
}

// SetLogger replaces the package logger.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}
