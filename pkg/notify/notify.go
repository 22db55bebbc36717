// Package notify carries user-facing notifications (toasts) from the core
// controllers to whatever surface renders them.
package notify

import "sync"

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a single notification.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notifications.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function into a Notifier.
type Func func(level Level, message string)

// Notify delegates to the underlying function.
func (fn Func) Notify(level Level, message string) {
	if fn != nil {
		fn(level, message)
	}
}

// Discard drops every notification.
var Discard Notifier = Func(nil)

// Recorder keeps notifications in memory. It is safe for concurrent use and is
// mostly useful in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records the notification.
func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
}

// Notices returns a copy of the recorded notifications.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Reset drops recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
