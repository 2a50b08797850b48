package ierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := New(ErrorCodeNotFound, cause)

	assert.Equal(t, "NotFound: boom", err.Error())
	assert.Equal(t, "boom", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("saving: %w", New(ErrorCodeInvalidArgument, errors.New("missing url")))

		assert.Equal(t, ErrorCodeInvalidArgument, CodeOf(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, ErrorCodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, ErrorCodeInternal, CodeOf(nil))
	})
}
