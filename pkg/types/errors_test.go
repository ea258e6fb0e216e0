package types

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadErrorUnwrap(t *testing.T) {
	err := &UploadError{Reason: ErrUploadSave, Err: io.ErrShortWrite}

	assert.ErrorIs(t, err, ErrUploadSave)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.NotErrorIs(t, err, ErrUploadType)
	assert.Equal(t, "failed to save favicon file: short write", err.Error())
}

func TestUploadErrorWithoutCause(t *testing.T) {
	var err error = &UploadError{Reason: ErrUploadType}

	var ue *UploadError
	assert.True(t, errors.As(err, &ue))
	assert.Equal(t, "invalid favicon file type", err.Error())
}

func TestUploadPresent(t *testing.T) {
	var nilUpload *Upload
	assert.False(t, nilUpload.Present())
	assert.False(t, (&Upload{}).Present())
	assert.True(t, (&Upload{Filename: "a.png"}).Present())
	assert.True(t, (&Upload{Err: io.ErrUnexpectedEOF}).Present())
}
