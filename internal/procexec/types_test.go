package procexec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want IOMode
	}{
		{"", ModeNotOpen},
		{"none", ModeNotOpen},
		{"r", ModeReadOnly},
		{"READ", ModeReadOnly},
		{"w", ModeWriteOnly},
		{" rw ", ModeReadWrite},
		{"readwrite", ModeReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("rwx")
	require.ErrorContains(t, err, "invalid io mode")
}

func TestIOMode_RoundTripsThroughString(t *testing.T) {
	for _, m := range []IOMode{ModeNotOpen, ModeReadOnly, ModeWriteOnly, ModeReadWrite} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestIOMode_Pipes(t *testing.T) {
	require.False(t, ModeNotOpen.CanRead())
	require.False(t, ModeNotOpen.CanWrite())
	require.True(t, ModeReadOnly.CanRead())
	require.False(t, ModeReadOnly.CanWrite())
	require.False(t, ModeWriteOnly.CanRead())
	require.True(t, ModeWriteOnly.CanWrite())
	require.True(t, ModeReadWrite.CanRead())
	require.True(t, ModeReadWrite.CanWrite())
}

func TestErrorCode_Order(t *testing.T) {
	codes := Codes()
	require.Len(t, codes, 6)
	for i, c := range codes {
		require.Equal(t, i, int(c))
	}
	require.Equal(t, "crashed", Crashed.String())
	require.Equal(t, "ErrorCode(42)", ErrorCode(42).String())
}

func TestEvent_Terminal(t *testing.T) {
	require.False(t, Started(10).Terminal())
	require.True(t, Errored(FailedToStart).Terminal())
	require.False(t, Errored(Crashed).Terminal())
	require.True(t, Finished(0, NormalExit).Terminal())
}
