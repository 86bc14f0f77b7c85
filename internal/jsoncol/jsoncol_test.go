package jsoncol

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

func TestDecode(t *testing.T) {
	r := Decode[[]int](`[1,3,5]`)
	assert.True(t, r.OK())
	assert.Equal(t, []int{1, 3, 5}, r.Value)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "truncated", raw: `[1,3`},
		{name: "wrong type", raw: `{"a":1}`},
		{name: "empty", raw: ``},
		{name: "garbage", raw: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Decode[[]int](tt.raw)
			assert.False(t, r.OK())
			assert.ErrorIs(t, r.Err, apperrors.ErrParse)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, r.Or([]int{0, 1, 2, 3, 4, 5, 6}))
		})
	}
}

func TestDecodeNull(t *testing.T) {
	r := DecodeNull[map[string]string](sql.NullString{})
	assert.True(t, r.OK())
	assert.Nil(t, r.Value)

	r = DecodeNull[map[string]string](sql.NullString{String: `{"hat":"red"}`, Valid: true})
	assert.Equal(t, map[string]string{"hat": "red"}, r.Value)
}

func TestOrLogWritesWarning(t *testing.T) {
	var buf bytes.Buffer
	logger.UseWriter(&buf, log.DebugLevel)
	t.Cleanup(func() { logger.Logger = nil })

	got := Decode[[]string](`{`).OrLog("benefits", []string{})
	assert.Equal(t, []string{}, got)
	assert.Contains(t, buf.String(), "benefits")
}

func TestEncode(t *testing.T) {
	s, err := Encode([]int{0, 6})
	assert.NoError(t, err)
	assert.Equal(t, `[0,6]`, s)

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}
