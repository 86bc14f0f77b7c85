package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: stderrors.New("something went wrong"), expected: "Error: something went wrong"},
		{name: "classified error", err: E(KindQuery, "habits.getAll", stderrors.New("no such table")), expected: "Error: habits.getAll: query: no such table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.err))
		})
	}
}

func TestFormatf(t *testing.T) {
	assert.Equal(t, "Error: restore failed after 3 tables", Formatf("restore failed after %d tables", 3))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("restore: %w", E(KindChecksumMismatch, "backup.validate", nil))

	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.NotErrorIs(t, err, ErrUnsupportedVersion)
	assert.Equal(t, KindChecksumMismatch, KindOf(err))
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := E(KindTransactionAbort, "sqlite.replaceDataset", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTransactionAbort)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(stderrors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorMessageShapes(t *testing.T) {
	assert.Equal(t, "unsupported version", ErrUnsupportedVersion.Error())
	assert.Equal(t, "backup.validate: malformed snapshot", E(KindMalformedSnapshot, "backup.validate", nil).Error())
	assert.Equal(t, "transport: timeout", E(KindTransport, "", stderrors.New("timeout")).Error())
}
