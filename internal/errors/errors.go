package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

// Kind classifies a failure so callers can decide how to degrade.
type Kind string

const (
	KindSchema             Kind = "schema"
	KindQuery              Kind = "query"
	KindParse              Kind = "parse"
	KindChecksumMismatch   Kind = "checksum mismatch"
	KindUnsupportedVersion Kind = "unsupported version"
	KindMalformedSnapshot  Kind = "malformed snapshot"
	KindTransactionAbort   Kind = "transaction abort"
	KindTransport          Kind = "transport"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

var (
	ErrSchema             = &Error{Kind: KindSchema}
	ErrQuery              = &Error{Kind: KindQuery}
	ErrParse              = &Error{Kind: KindParse}
	ErrChecksumMismatch   = &Error{Kind: KindChecksumMismatch}
	ErrUnsupportedVersion = &Error{Kind: KindUnsupportedVersion}
	ErrMalformedSnapshot  = &Error{Kind: KindMalformedSnapshot}
	ErrTransactionAbort   = &Error{Kind: KindTransactionAbort}
	ErrTransport          = &Error{Kind: KindTransport}
)

// E builds a classified error. A nil err still yields a non-nil *Error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
