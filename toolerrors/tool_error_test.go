package toolerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowctl/agentruntime/toolerrors"
)

func TestNewDefaultsMessage(t *testing.T) {
	err := toolerrors.New("")
	require.Equal(t, "tool error", err.Error())
}

func TestFromErrorChainsCauses(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("wrap: %w", base)

	te := toolerrors.FromError(wrapped)
	require.Equal(t, "wrap: boom", te.Message)
	require.NotNil(t, te.Cause)
	require.Equal(t, "boom", te.Cause.Message)
}

func TestFromErrorNilIsNil(t *testing.T) {
	require.Nil(t, toolerrors.FromError(nil))
}

func TestFromErrorPreservesExistingToolError(t *testing.T) {
	original := toolerrors.New("already structured")
	require.Same(t, original, toolerrors.FromError(original))
}

func TestErrorsIsThroughUnwrapOfNestedToolErrors(t *testing.T) {
	inner := toolerrors.New("rate limited")
	outer := toolerrors.NewWithCause("tool call failed", inner)

	require.True(t, errors.Is(outer, inner))
}
