package errors

import (
	"sync"
	"time"
)

// Diagnostic is a recorded, non-fatal condition such as an inert binding or a
// rejected model attachment.
type Diagnostic struct {
	Err       error
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of a diagnostic
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// SeverityOf maps an error onto a diagnostic severity.
func SeverityOf(err error) ErrorSeverity {
	switch {
	case err == nil:
		return ErrorSeverityInfo
	case IsRecoverable(err):
		return ErrorSeverityWarning
	default:
		return ErrorSeverityFatal
	}
}

// ErrorCollector collects diagnostics. It is read by the inspector from
// other goroutines, hence the lock.
type ErrorCollector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// AddError records err with a severity derived from it.
func (ec *ErrorCollector) AddError(err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = append(ec.diagnostics, Diagnostic{
		Err:       err,
		Severity:  SeverityOf(err),
		Timestamp: time.Now(),
	})
}

// GetDiagnostics returns a copy of all collected diagnostics.
func (ec *ErrorCollector) GetDiagnostics() []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]Diagnostic, len(ec.diagnostics))
	copy(result, ec.diagnostics)
	return result
}

// GetByCode returns the diagnostics whose error carries code.
func (ec *ErrorCollector) GetByCode(code string) []Diagnostic {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var out []Diagnostic
	for _, d := range ec.diagnostics {
		if CodeOf(d.Err) == code {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.diagnostics) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.diagnostics = ec.diagnostics[:0]
}
