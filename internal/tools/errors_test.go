package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelAndCause(t *testing.T) {
	err := NewError(KindIO, "read_file", "missing.txt", fs.ErrNotExist)

	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrPathTraversal))
	assert.Equal(t, "read_file missing.txt: i/o error: file does not exist", err.Error())
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewError(KindWritesDisabled, "write_file", "notes.txt", nil)
	assert.Equal(t, "write_file notes.txt: write helpers are disabled (set allow_tool_writes = true)", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"typed", NewError(KindTimeout, "", "", nil), KindTimeout},
		{"wrapped typed", fmt.Errorf("approve: %w", NewError(KindNotFound, "approve", "7", nil)), KindNotFound},
		{"bare sentinel", fmt.Errorf("x: %w", ErrNetwork), KindNetwork},
		{"foreign", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "PathTraversal", KindPathTraversal.String())
	assert.Equal(t, "ArgumentParseError", KindArgumentParse.String())
	text, err := KindIO.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "IoError", string(text))
}
