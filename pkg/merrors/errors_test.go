package merrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Wrap(KindGetFailure, "temperature", errors.New("boom"))
	require.True(t, errors.Is(err, New(KindGetFailure, "")))
	require.False(t, errors.Is(err, New(KindSetFailure, "")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindGetFailure, "temperature", cause)
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestIsHostOperation(t *testing.T) {
	require.True(t, IsHostOperation(KindSetFailure))
	require.True(t, IsHostOperation(KindNonExistentTopic))
	require.False(t, IsHostOperation(KindAccessSocket))
}
