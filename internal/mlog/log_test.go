package mlog

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetWriters(t *testing.T) {
	t.Helper()
	prevDebug, prevInfo, prevWarn, prevErr := DebugWriter, InfoWriter, WarnWriter, ErrWriter
	t.Cleanup(func() {
		DebugWriter, InfoWriter, WarnWriter, ErrWriter = prevDebug, prevInfo, prevWarn, prevErr
		rebuild()
	})
}

func TestSetLogLevelDiscardsBelowThreshold(t *testing.T) {
	resetWriters(t)

	var buf bytes.Buffer
	DebugWriter = &buf
	rebuild()
	SetLogLevel("info")

	Debug("should not appear")
	require.Empty(t, buf.String())
	require.Equal(t, io.Discard, DebugWriter)
}

func TestInfoWrites(t *testing.T) {
	resetWriters(t)

	var buf bytes.Buffer
	InfoWriter = &buf
	SetLogLevel("debug")

	Info("hello")
	require.Contains(t, buf.String(), "hello")
}
