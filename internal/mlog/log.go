// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mlog provides a simple leveled logger shared by the host and node
// packages. Time/date are omitted by default, matching an environment where
// the surrounding process supervisor (systemd, a test harness) stamps lines
// itself; call SetLogDateTime(true) to include them.
package mlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "[DEBUG] "
	InfoPrefix  string = "[INFO]  "
	WarnPrefix  string = "[WARN]  "
	ErrPrefix   string = "[ERROR] "
)

var (
	debugLog = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  = log.New(InfoWriter, InfoPrefix, 0)
	warnLog  = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	debugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog  = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLogLevel discards writers below lvl. Valid values, from quietest to
// loudest: "err", "warn", "info", "debug".
func SetLogLevel(lvl string) {
	switch lvl {
	case "err":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		fmt.Fprintf(os.Stderr, "mlog: invalid log level %q, using \"debug\"\n", lvl)
		SetLogLevel("debug")
		return
	}
	rebuild()
}

// SetLogDateTime toggles whether log lines carry a timestamp prefix.
func SetLogDateTime(v bool) {
	logDateTime = v
}

func rebuild() {
	debugLog = log.New(DebugWriter, DebugPrefix, 0)
	infoLog = log.New(InfoWriter, InfoPrefix, 0)
	warnLog = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	debugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
}

func out(discard io.Writer, plain, timed *log.Logger, v ...interface{}) {
	if discard == io.Discard {
		return
	}
	s := fmt.Sprint(v...)
	if logDateTime {
		timed.Output(2, s)
	} else {
		plain.Output(2, s)
	}
}

func outf(discard io.Writer, plain, timed *log.Logger, format string, v ...interface{}) {
	if discard == io.Discard {
		return
	}
	s := fmt.Sprintf(format, v...)
	if logDateTime {
		timed.Output(2, s)
	} else {
		plain.Output(2, s)
	}
}

func Debug(v ...interface{}) { out(DebugWriter, debugLog, debugTimeLog, v...) }
func Info(v ...interface{})  { out(InfoWriter, infoLog, infoTimeLog, v...) }
func Warn(v ...interface{})  { out(WarnWriter, warnLog, warnTimeLog, v...) }
func Error(v ...interface{}) { out(ErrWriter, errLog, errTimeLog, v...) }

func Debugf(format string, v ...interface{}) { outf(DebugWriter, debugLog, debugTimeLog, format, v...) }
func Infof(format string, v ...interface{})  { outf(InfoWriter, infoLog, infoTimeLog, format, v...) }
func Warnf(format string, v ...interface{})  { outf(WarnWriter, warnLog, warnTimeLog, format, v...) }
func Errorf(format string, v ...interface{}) { outf(ErrWriter, errLog, errTimeLog, format, v...) }

// Fatal logs at error level and exits. Used only in cmd/ entry points.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}
