package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("handler: %w", Wrap(CodeLLMUnavailable, "upstream down", cause))

	require.True(t, IsCode(err, CodeLLMUnavailable))
	require.False(t, IsCode(err, CodeInvalidInput))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "handler: upstream down: boom", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	require.Empty(t, CodeOf(errors.New("plain")))
	require.Empty(t, CodeOf(nil))
	require.Equal(t, "height must be positive", Wrap(CodeInvalidInput, "height must be positive", nil).Error())
}
