// Package cmd provides common command line glue for the uacme binary.
package cmd

import (
	log "github.com/sirupsen/logrus"
)

// FailOnError logs the error with the given message and exits nonzero. It
// returns silently when err is nil.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	log.Fatalf("%s: %s", msg, err)
}

// Verbosity maps a repeatable -v count onto a log level. The default is
// warnings only; each repetition raises one step.
func Verbosity(count int) log.Level {
	switch {
	case count <= 0:
		return log.WarnLevel
	case count == 1:
		return log.InfoLevel
	case count == 2:
		return log.DebugLevel
	}
	return log.TraceLevel
}
