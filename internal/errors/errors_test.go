package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid log level", f.New(errors.ErrInvalidLogLevel).Error())
	assert.Equal(t, "Failed to read config file: boom", f.Wrap(errors.ErrReadConfig, fmt.Errorf("boom")).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "Invalid argument provided: 42", f.WithData(errors.ErrInvalidArgument, 42).Error())
	assert.Equal(t, "some_unknown_code", f.New("some_unknown_code").Error())
}

func TestHasCode(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrNotExists)
	outer := fmt.Errorf("context: %w", f.Wrap(errors.ErrInternal, inner))

	assert.True(t, errors.HasCode(outer, errors.ErrInternal))
	assert.True(t, errors.HasCode(outer, errors.ErrNotExists))
	assert.False(t, errors.HasCode(outer, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))
}

func TestIsMatchesCode(t *testing.T) {
	f := errors.New()
	err := fmt.Errorf("wrapped: %w", f.Wrap(errors.ErrAlreadyRunning, fmt.Errorf("pid 12")))

	assert.True(t, errors.Is(err, f.New(errors.ErrAlreadyRunning)))
	assert.False(t, errors.Is(err, f.New(errors.ErrNotExists)))
}
