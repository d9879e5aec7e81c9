package guiprocess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_String(t *testing.T) {
	require.Equal(t, "not-started", NotStarted.String())
	require.Equal(t, "starting", Starting.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "finished", Finished.String())
	require.Equal(t, "errored", Errored.String())
	require.Equal(t, "State(12)", State(12).String())
}

func TestState_Done(t *testing.T) {
	require.False(t, NotStarted.Done())
	require.False(t, Starting.Done())
	require.False(t, Running.Done())
	require.True(t, Finished.Done())
	require.True(t, Errored.Done())
}
