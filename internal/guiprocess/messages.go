package guiprocess

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alessio/shellescape"

	"github.com/zjrosen/procwatch/internal/procexec"
)

// ErrorString returns the fixed human-readable description of code.
// It panics on a code outside procexec.Codes.
func ErrorString(code procexec.ErrorCode) string {
	switch code {
	case procexec.FailedToStart:
		return "The process failed to start."
	case procexec.Crashed:
		return "The process crashed."
	case procexec.Timedout:
		return "The last waitFor...() function timed out."
	case procexec.WriteError:
		return "An error occurred when attempting to write to the process."
	case procexec.ReadError:
		return "An error occurred when attempting to read from the process."
	case procexec.UnknownError:
		return "An unknown error occurred."
	default:
		panic(fmt.Sprintf("guiprocess: no message for error code %d", int(code)))
	}
}

// Capitalize upper-cases the first character of s and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Cmdline renders cmd and args as a single shell-quoted command line.
func Cmdline(cmd string, args []string) string {
	words := make([]string, 0, len(args)+1)
	words = append(words, cmd)
	words = append(words, args...)
	return shellescape.QuoteCommand(words)
}

func spawnErrorText(what, detail string) string {
	return fmt.Sprintf("Error while spawning %s: %s", what, detail)
}

func crashedText(what string) string {
	return fmt.Sprintf("%s crashed!", Capitalize(what))
}

func successText(what string) string {
	return fmt.Sprintf("%s exited successfully.", Capitalize(what))
}

func exitStatusText(what string, code int) string {
	return fmt.Sprintf("%s exited with status %d.", Capitalize(what), code)
}
