package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ConnectionError{Op: "dial", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPermissionDeniedSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("%w: microphone access refused", ErrPermissionDenied)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestIsDecodeError(t *testing.T) {
	err := &DecodeError{Reason: "odd payload length"}
	assert.True(t, IsDecodeError(err))
	assert.True(t, IsDecodeError(fmt.Errorf("dropping fragment: %w", err)))
	assert.False(t, IsDecodeError(errors.New("odd payload length")))
	assert.False(t, IsDecodeError(nil))
}

func TestSchedulingErrorUnwraps(t *testing.T) {
	cause := errors.New("device lost")
	err := &SchedulingError{Err: cause}
	assert.ErrorIs(t, err, cause)
}
