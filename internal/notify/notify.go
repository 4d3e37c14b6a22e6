// Package notify delivers user-facing notifications about relocation outcomes.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dpshade/prompt-mover/internal/errors"
)

// Severity is the level of a notification
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notification is one delivered message
type Notification struct {
	Severity Severity
	Message  string
	Time     time.Time
}

// Notifier receives notifications
type Notifier interface {
	Notify(severity Severity, message string)
}

// Func adapts a plain function to a Notifier
type Func func(severity Severity, message string)

// Notify calls f
func (f Func) Notify(severity Severity, message string) {
	f(severity, message)
}

// Logger writes notifications to a zap logger
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a notifier backed by logger
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("notify")}
}

// Notify logs the message at the level matching its severity
func (l *Logger) Notify(severity Severity, message string) {
	field := zap.String("severity", string(severity))
	switch severity {
	case Warning:
		l.logger.Warn(message, field)
	case Error:
		l.logger.Error(message, field)
	default:
		l.logger.Info(message, field)
	}
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records the notification
func (r *Recorder) Notify(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Notification{Severity: severity, Message: message, Time: time.Now()})
}

// All returns a copy of the recorded notifications, oldest first
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}, false
	}
	return r.notes[len(r.notes)-1], true
}

// Reset drops every recorded notification
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notes = nil
	r.mu.Unlock()
}

type multi []Notifier

func (m multi) Notify(severity Severity, message string) {
	for _, n := range m {
		n.Notify(severity, message)
	}
}

// Multi fans a notification out to every non-nil notifier
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

// SeverityFor picks the severity a failed operation is reported with.
// Rejected input is a warning; anything that failed while saving is an error.
func SeverityFor(err error) Severity {
	if err == nil {
		return Success
	}
	if errors.GetAppError(err).IsValidation() {
		return Warning
	}
	return Error
}
