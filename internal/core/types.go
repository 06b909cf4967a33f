package core

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies why an action did not complete.
type Kind string

const (
	KindCooldownActive     Kind = "cooldown_active"
	KindValidation         Kind = "validation"
	KindPersistence        Kind = "persistence"
	KindBackendUnavailable Kind = "backend_unavailable"
)

// Error is the domain error carried by rejections.
type Error struct {
	Kind      Kind
	Reason    string        // human readable, safe to show to players
	Remaining time.Duration // set for KindCooldownActive
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// CooldownActive reports an actor still resting.
func CooldownActive(remaining time.Duration) *Error {
	return &Error{
		Kind:      KindCooldownActive,
		Reason:    fmt.Sprintf("cooldown active, %ds remaining", Seconds(remaining)),
		Remaining: remaining,
	}
}

// Invalid reports a failed precondition such as insufficient funds.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// Persistence wraps an I/O failure while writing state.
func Persistence(cause error) *Error {
	return &Error{Kind: KindPersistence, Reason: "state could not be saved", Cause: cause}
}

// BackendUnavailable reports a failed cooldown backend probe.
func BackendUnavailable(which string, cause error) *Error {
	return &Error{Kind: KindBackendUnavailable, Reason: which + " unavailable", Cause: cause}
}

// KindOf returns the Kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Seconds rounds d up to whole seconds.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// CeilUnix returns t as epoch seconds, rounded up so a stored expiry never
// falls before t.
func CeilUnix(t time.Time) int64 {
	s := t.Unix()
	if t.After(time.Unix(s, 0)) {
		s++
	}
	return s
}
