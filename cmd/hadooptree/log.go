package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func (rcc *rootCmdConfig) logger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	l.Level = logrus.WarnLevel
	if rcc.verbose {
		l.Level = logrus.InfoLevel
	}
	return l
}

func exit(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}
