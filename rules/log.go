package rules

import "sync"

// LogOptions selects which rule outcomes are forwarded to the log callback
type LogOptions struct {
	OnSuccess bool
	OnFailure bool
}

// LogFunc receives one entry per evaluated rule.
// failure is nil when the rule fired.
type LogFunc func(rule *Rule, success bool, record Record, failure *Failure)

// Logger forwards dispatch outcomes to a single callback.
// Entries are dropped when no callback is set.
type Logger struct {
	options  LogOptions
	callback LogFunc
	mu       sync.RWMutex
}

// NewLogger creates a logger with both flags disabled and no callback
func NewLogger() *Logger {
	return &Logger{}
}

// SetLogging sets the success and failure flags
func (l *Logger) SetLogging(opts LogOptions) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.options = opts
}

// SetLogCallback replaces the callback; nil removes it
func (l *Logger) SetLogCallback(fn LogFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.callback = fn
}

// Options returns the current flags
func (l *Logger) Options() LogOptions {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.options
}

// emit forwards an entry if its outcome is enabled and a callback is set.
// The lock is released before the callback runs so callbacks may reconfigure the logger.
func (l *Logger) emit(rule *Rule, success bool, record Record, failure *Failure) {
	l.mu.RLock()
	fn := l.callback
	enabled := l.options.OnFailure
	if success {
		enabled = l.options.OnSuccess
	}
	l.mu.RUnlock()

	if fn == nil || !enabled {
		return
	}
	fn(rule, success, record, failure)
}
