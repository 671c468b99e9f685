package model

import (
	"errors"
	"strings"
)

// PermanentError marks a failure that repeating the same call will not
// fix: local retry loops (retryutil.Do callers, the worker's fetch loop)
// stop on it instead of retrying. The bus consumer does not inspect it;
// the worker decides whether to ack or to return the message for a bus
// retry (spec §7).
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err as permanent.
func NewPermanentError(reason string, err error) *PermanentError {
	return &PermanentError{Reason: reason, Err: err}
}

// IsPermanent reports whether err should be acked without retry.
// In addition to explicit *PermanentError wrapping, it recognizes the
// textual markers spec §7 names for validation/not-found/parse errors,
// for errors surfaced from drivers that don't let us wrap them.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"transaction not found",
		"invalid signature",
		"validation error",
		"parse error",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a network/availability failure
// that should be retried locally and, failing that, nacked for bus
// redelivery (spec §7). Transient is "not permanent": every non-nil,
// non-permanent error yields true, whether or not it matches one of the
// network markers listed below (timeouts, connection resets, 502/503,
// 429), so the result does not single out genuine network failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"econnrefused",
		"econnreset",
		"connection refused",
		"connection reset",
		"429",
		"502",
		"503",
		"too many requests",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	// Anything not explicitly classified is treated as transient
	// (spec §4.7 "Error classification": "anything not classified").
	return true
}
