package message

import (
	"fmt"
	"io"
	"sync"

	"github.com/zjrosen/procwatch/internal/ui/toaster"
)

// Writer is a Sink that prints each notification to an io.Writer, either
// as a toast box or as a plain "level: text" line.
type Writer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	plain bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWidth bounds toast boxes to width cells.
func WithWidth(width int) WriterOption {
	return func(w *Writer) {
		w.width = width
	}
}

// WithPlain disables toast rendering.
func WithPlain(plain bool) WriterOption {
	return func(w *Writer) {
		w.plain = plain
	}
}

// NewWriter creates a Writer printing to out.
func NewWriter(out io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{out: out}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Error(_ string, text string, _ bool) {
	w.write(Error, text)
}

func (w *Writer) Info(_ string, text string) {
	w.write(Info, text)
}

func (w *Writer) write(level Level, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.plain {
		_, _ = fmt.Fprintf(w.out, "%s: %s\n", level, text)
		return
	}
	_, _ = fmt.Fprintln(w.out, toaster.Render(text, ToastStyle(level), w.width))
}

// ToastStyle maps a Level to its toast appearance.
func ToastStyle(level Level) toaster.Style {
	switch level {
	case Error:
		return toaster.StyleError
	case Warning:
		return toaster.StyleWarn
	default:
		return toaster.StyleInfo
	}
}
