// Package jsoncol decodes structured values stored as JSON text columns.
//
// Decode never panics or returns an error for bad content. The caller inspects the
// Result and picks a default, so each column has exactly one place where a corrupt
// value is replaced.
package jsoncol

import (
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

// Result is the outcome of decoding one column value.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the column decoded cleanly.
func (r Result[T]) OK() bool { return r.Err == nil }

// Or returns the decoded value, or def when decoding failed.
func (r Result[T]) Or(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// OrLog is Or, plus a warning naming the column when the default was used.
func (r Result[T]) OrLog(column string, def T) T {
	if r.Err != nil {
		logger.Warn("Falling back to default for unreadable column", "column", column, "error", r.Err)
		return def
	}
	return r.Value
}

// Decode parses raw into T. Empty input is a parse error.
func Decode[T any](raw string) Result[T] {
	var v T
	if raw == "" {
		return Result[T]{Err: apperrors.E(apperrors.KindParse, "jsoncol.decode", fmt.Errorf("empty value"))}
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return Result[T]{Value: zero, Err: apperrors.E(apperrors.KindParse, "jsoncol.decode", err)}
	}
	return Result[T]{Value: v}
}

// DecodeNull is Decode for nullable columns. NULL decodes to the zero value without error.
func DecodeNull[T any](raw sql.NullString) Result[T] {
	if !raw.Valid {
		var zero T
		return Result[T]{Value: zero}
	}
	return Decode[T](raw.String)
}

// Encode marshals v for storage in a text column.
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column value: %w", err)
	}
	return string(b), nil
}
