// Package notify provides fire-and-forget sinks for user-facing messages.
//
// Domain managers report the outcome of user actions ("item added",
// "login failed") through a Notifier. Delivery is best effort: a sink must
// never block the caller and may drop messages.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Info    Kind = "info"
	Error   Kind = "error"
)

// Notification is a single user-facing message.
type Notification struct {
	Kind    Kind
	Message string
}

// Notifier receives user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(kind Kind, message string)

// Notify calls f(kind, message).
func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Nop discards every notification.
var Nop Notifier = Func(func(Kind, string) {})

// Logger forwards notifications to a zap logger, mapping Error to the
// error level and everything else to info.
type Logger struct {
	lg *zap.Logger
}

// NewLogger returns a Logger sink writing to lg.
func NewLogger(lg *zap.Logger) *Logger {
	return &Logger{lg: lg}
}

// Notify logs the message.
func (l *Logger) Notify(kind Kind, message string) {
	if kind == Error {
		l.lg.Error(message, zap.String("kind", string(kind)))
		return
	}
	l.lg.Info(message, zap.String("kind", string(kind)))
}

// Writer prints notifications as single lines, e.g. "[success] Pizza added to cart".
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer sink printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Notify writes the message. Write errors are ignored.
func (w *Writer) Notify(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.w, "[%s] %s\n", kind, message)
}

// Multi fans a notification out to every sink in order.
type Multi []Notifier

// Notify forwards to all sinks.
func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}
