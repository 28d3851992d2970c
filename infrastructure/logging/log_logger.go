// Package logging implements application.Logger over the standard log
// package, the way TunGo's LogLogger does, extended with the four level
// tags Daisyway's operational policy needs.
package logging

import (
	"log"

	"github.com/aparcar/daisyway/application"
)

// LogLogger is a level-prefixing wrapper around the standard library
// logger.
type LogLogger struct{}

// NewLogLogger returns a ready-to-use application.Logger.
func NewLogLogger() application.Logger {
	return &LogLogger{}
}

func (l *LogLogger) Debugf(format string, v ...any) {
	log.Printf("DEBUG "+format, v...)
}

func (l *LogLogger) Infof(format string, v ...any) {
	log.Printf("INFO "+format, v...)
}

func (l *LogLogger) Warnf(format string, v ...any) {
	log.Printf("WARN "+format, v...)
}

func (l *LogLogger) Errorf(format string, v ...any) {
	log.Printf("ERROR "+format, v...)
}
