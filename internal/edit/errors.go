package edit

import "fmt"

// ValidationError reports a malformed edit parameter.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return "invalid edits: " + e.Reason
	}
	return fmt.Sprintf("invalid edit %q: %s", e.Key, e.Reason)
}

func invalid(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}
