package message

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/procwatch/internal/ui/toaster"
)

func TestWriter_Plain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithPlain(true))

	w.Info("w", "Executing: sh -c 'exit 0'")
	w.Error("w", "Sh exited with status 3.", false)

	require.Equal(t,
		"info: Executing: sh -c 'exit 0'\nerror: Sh exited with status 3.\n",
		buf.String())
}

func TestWriter_Toast(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithWidth(40))

	w.Error("w", "Editor crashed!", true)

	out := buf.String()
	require.Contains(t, out, "Editor crashed!")
	require.Contains(t, out, "❌")
	require.True(t, strings.HasSuffix(out, "\n"))
}

func TestToastStyle(t *testing.T) {
	require.Equal(t, toaster.StyleError, ToastStyle(Error))
	require.Equal(t, toaster.StyleWarn, ToastStyle(Warning))
	require.Equal(t, toaster.StyleInfo, ToastStyle(Info))
}
