// Package notify carries short-lived user notices emitted during an export.
package notify

import (
	"fmt"
	"sync"
	"time"
)

// Level classifies a notice.
type Level int

// Notice levels.
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// MarshalText renders the level name in JSON and YAML output.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Notice is a single user-facing message.
type Notice struct {
	Level   Level     `json:"level" yaml:"level"`
	Message string    `json:"message" yaml:"message"`
	Time    time.Time `json:"time" yaml:"time"`
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

// Notify calls f(n).
func (f Func) Notify(n Notice) { f(n) }

func emit(n Notifier, level Level, format string, args ...any) {
	if n == nil {
		return
	}
	n.Notify(Notice{Level: level, Message: fmt.Sprintf(format, args...), Time: time.Now()})
}

// Success emits a success notice.
func Success(n Notifier, format string, args ...any) { emit(n, LevelSuccess, format, args...) }

// Error emits an error notice.
func Error(n Notifier, format string, args ...any) { emit(n, LevelError, format, args...) }

// Info emits an informational notice.
func Info(n Notifier, format string, args ...any) { emit(n, LevelInfo, format, args...) }

// Multi fans a notice out to every notifier.
type Multi []Notifier

// Notify forwards n to each non-nil notifier in order.
func (m Multi) Notify(n Notice) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Messages returns the recorded messages at level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
